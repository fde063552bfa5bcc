package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"icebreaker/internal/core/domain"
)

// form is a column of single-line inputs followed by one free-text area.
// focus == len(inputs) means the area has focus.
type form struct {
	labels    []string
	inputs    []textinput.Model
	areaLabel string
	area      textarea.Model
	focus     int
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 60
	ti.SetValue(value)
	return ti
}

func newArea(placeholder, value string, height int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.SetWidth(62)
	ta.SetHeight(height)
	ta.SetValue(value)
	return ta
}

func newCompanyForm(s *domain.Session) *form {
	f := &form{
		labels: []string{"Company Name *", "Company Domain *"},
		inputs: []textinput.Model{
			newInput("", s.CompanyName),
			newInput("example.com", s.CompanyDomain),
		},
		areaLabel: "Supplemental Information (optional)",
		area:      newArea("Any additional context about your company, products, or services...", s.SupplementalInfo, 4),
	}
	f.setFocus(0)
	return f
}

func newProspectForm(s *domain.Session) *form {
	f := &form{
		labels: []string{"Prospect Company (optional)", "Prospect Individual Name (optional)"},
		inputs: []textinput.Model{
			newInput("", s.ProspectCompany),
			newInput("", s.ProspectName),
		},
		areaLabel: "Supplemental Prospect Information (optional)",
		area:      newArea("Specifics about what you want to sell, things you know about the prospect, talking points...", s.SupplementalProspectInfo, 6),
	}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	n := len(f.inputs) + 1
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	if f.focus == len(f.inputs) {
		f.area.Focus()
	} else {
		f.area.Blur()
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus < len(f.inputs) {
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return cmd
	}
	f.area, cmd = f.area.Update(msg)
	return cmd
}

func (f *form) value(i int) string {
	return f.inputs[i].Value()
}

func (f *form) companyForm() domain.CompanyForm {
	return domain.CompanyForm{Name: f.value(0), Domain: f.value(1), Supplemental: f.area.Value()}
}

func (f *form) prospectForm() domain.ProspectForm {
	return domain.ProspectForm{Company: f.value(0), Name: f.value(1), Supplemental: f.area.Value()}
}

func (f *form) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		b.WriteString(labelStyle.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	b.WriteString(labelStyle.Render(f.areaLabel))
	b.WriteString("\n")
	b.WriteString(f.area.View())
	return b.String()
}
