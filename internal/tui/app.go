// Package tui is the terminal front end of the prospecting workflow: a
// company form, a prospect form and the generated email, one screen each.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"icebreaker/internal/core/domain"
	"icebreaker/internal/service"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// summaryPreviewLines is how much of the research report shows collapsed.
const summaryPreviewLines = 6

// Runner executes the crew stages. *service.Workflow implements it.
type Runner interface {
	Research(ctx context.Context, s *domain.Session, form domain.CompanyForm) error
	Generate(ctx context.Context, s *domain.Session, form domain.ProspectForm) error
}

// stageDoneMsg carries the session copy a stage ran against.
type stageDoneMsg struct {
	stage   domain.Stage
	session domain.Session
	err     error
}

// App is the bubbletea model.
type App struct {
	ctx    context.Context
	runner Runner

	session *domain.Session
	form    *form

	spinner  spinner.Model
	busy     bool
	busyText string
	banner   string
	expanded bool

	width int
}

// NewApp creates the model. ctx bounds every crew run started from the UI.
func NewApp(ctx context.Context, runner Runner) *App {
	s := domain.NewSession()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &App{
		ctx:     ctx,
		runner:  runner,
		session: s,
		form:    newCompanyForm(s),
		spinner: sp,
	}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case stageDoneMsg:
		return a.handleStageDone(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.busy {
			return a, nil
		}
		a.banner = ""
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return a, tea.Quit
	case "ctrl+r":
		a.session.ResetAll()
		a.form = newCompanyForm(a.session)
		a.expanded = false
		return a, nil
	case "ctrl+p":
		if a.session.Phase == domain.PhaseResult {
			a.session.ResetProspect()
			a.form = newProspectForm(a.session)
		}
		return a, nil
	case "ctrl+e":
		a.expanded = !a.expanded
		return a, nil
	case "ctrl+s":
		return a.submit()
	case "tab":
		if a.form != nil && a.session.Phase != domain.PhaseResult {
			a.form.next()
		}
		return a, nil
	case "shift+tab":
		if a.form != nil && a.session.Phase != domain.PhaseResult {
			a.form.prev()
		}
		return a, nil
	}

	if a.form == nil || a.session.Phase == domain.PhaseResult {
		return a, nil
	}
	return a, a.form.update(msg)
}

func (a *App) submit() (tea.Model, tea.Cmd) {
	ctx := a.ctx
	runner := a.runner
	snapshot := *a.session

	var run tea.Cmd
	switch a.session.Phase {
	case domain.PhaseCompany:
		form := a.form.companyForm()
		a.busyText = "Researching your company... This may take a few minutes."
		run = func() tea.Msg {
			err := runner.Research(ctx, &snapshot, form)
			return stageDoneMsg{stage: domain.StageResearch, session: snapshot, err: err}
		}
	case domain.PhaseProspect:
		form := a.form.prospectForm()
		a.busyText = "Generating icebreaker email... This may take a few minutes."
		run = func() tea.Msg {
			err := runner.Generate(ctx, &snapshot, form)
			return stageDoneMsg{stage: domain.StageGenerate, session: snapshot, err: err}
		}
	default:
		return a, nil
	}

	a.busy = true
	return a, tea.Batch(a.spinner.Tick, run)
}

func (a *App) handleStageDone(msg stageDoneMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	*a.session = msg.session

	if msg.err != nil {
		a.session.ErrorMessage = service.UserMessage(msg.stage, msg.err)
		a.banner = a.session.TakeError()
		return a, nil
	}

	switch a.session.Phase {
	case domain.PhaseProspect:
		a.form = newProspectForm(a.session)
	case domain.PhaseResult:
		a.form = nil
	}
	a.expanded = false
	return a, nil
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Prospecting Icebreaker Generator"))
	b.WriteString("\n")

	if a.banner != "" {
		b.WriteString(errorStyle.Render(a.banner))
		b.WriteString("\n\n")
	}

	switch a.session.Phase {
	case domain.PhaseCompany:
		b.WriteString(headerStyle.Render("Step 1: Your Company"))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Tell us about your company so we can research your products and services."))
		b.WriteString("\n\n")
		b.WriteString(a.form.view())
	case domain.PhaseProspect:
		b.WriteString(headerStyle.Render("Step 2: Prospect Information"))
		b.WriteString("\n\n")
		b.WriteString(a.researchSummary())
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Provide details about who you'd like to prospect to."))
		b.WriteString("\n\n")
		b.WriteString(a.form.view())
	case domain.PhaseResult:
		b.WriteString(headerStyle.Render("Your Icebreaker Email"))
		b.WriteString("\n\n")
		b.WriteString(a.resultContext())
		b.WriteString("\n\n")
		b.WriteString(a.wrap(a.session.IcebreakerEmail))
	}

	b.WriteString("\n\n")
	if a.busy {
		b.WriteString(a.spinner.View() + " " + a.busyText)
	} else {
		b.WriteString(mutedStyle.Render(a.help()))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) researchSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nDomain: %s\n", a.session.CompanyName, a.session.CompanyDomain)
	if a.session.SupplementalInfo != "" {
		fmt.Fprintf(&b, "Notes: %s\n", a.session.SupplementalInfo)
	}
	b.WriteString("\n")

	report := a.session.ReconReport
	if !a.expanded {
		lines := strings.Split(report, "\n")
		if len(lines) > summaryPreviewLines {
			report = strings.Join(lines[:summaryPreviewLines], "\n") + "\n" + mutedStyle.Render("... (ctrl+e to expand)")
		}
	}
	b.WriteString(report)
	return panelStyle.Render(headerStyle.Render("Company Research Summary") + "\n" + a.wrap(b.String()))
}

func (a *App) resultContext() string {
	lines := []string{"Your Company: " + a.session.CompanyName}
	if a.session.ProspectName != "" {
		lines = append(lines, "Prospect: "+a.session.ProspectName)
	}
	if a.session.ProspectCompany != "" {
		lines = append(lines, "Prospect Company: "+a.session.ProspectCompany)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) wrap(s string) string {
	if a.width <= 4 {
		return s
	}
	return lipgloss.NewStyle().Width(a.width - 4).Render(s)
}

func (a *App) help() string {
	switch a.session.Phase {
	case domain.PhaseCompany:
		return "tab: next field • ctrl+s: research company • esc: quit"
	case domain.PhaseProspect:
		return "tab: next field • ctrl+s: generate icebreaker • ctrl+e: toggle summary • ctrl+r: start over • esc: quit"
	default:
		return "ctrl+p: prospect another entity • ctrl+r: start over • esc: quit"
	}
}

// Session exposes the current session, mainly for tests.
func (a *App) Session() domain.Session {
	return *a.session
}
