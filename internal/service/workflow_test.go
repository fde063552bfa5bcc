package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"icebreaker/internal/adapters/localstorage"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/service"
)

var _ = Describe("Workflow", func() {
	var (
		ctx      context.Context
		research *mockCrewClient
		generate *mockCrewClient
		session  *domain.Session
		wf       *service.Workflow
	)

	BeforeEach(func() {
		ctx = context.Background()
		research = &mockCrewClient{statuses: []domain.Status{running(), done("recon")}}
		generate = &mockCrewClient{statuses: []domain.Status{done("Hi Jane,")}}
		session = domain.NewSession()
		wf = service.NewWorkflow(research, generate, service.NewWaiter(&recordingSleeper{}, nil), nil, service.WaitOptions{}, nil)
	})

	Describe("Research", func() {
		It("requires company name and domain", func() {
			err := wf.Research(ctx, session, domain.CompanyForm{Name: "  ", Domain: "acme.com"})
			Expect(err).To(MatchError(service.ErrMissingCompany))
			Expect(research.launched).To(BeEmpty())
			Expect(session.Phase).To(Equal(domain.PhaseCompany))
		})

		It("sends trimmed inputs and advances to the prospect form", func() {
			err := wf.Research(ctx, session, domain.CompanyForm{Name: " Acme ", Domain: "acme.com\n", Supplemental: " widgets "})
			Expect(err).NotTo(HaveOccurred())

			Expect(research.launched).To(Equal([]domain.Inputs{{
				"company_name":      "Acme",
				"company_domain":    "acme.com",
				"supplemental_info": "widgets",
			}}))
			Expect(session.ReconReport).To(Equal("recon"))
			Expect(session.Phase).To(Equal(domain.PhaseProspect))
			Expect(session.UpdatedAt).NotTo(BeZero())
		})

		It("keeps the phase when the crew fails", func() {
			research.statuses = []domain.Status{{State: domain.StateError, Raw: "error"}}

			err := wf.Research(ctx, session, domain.CompanyForm{Name: "Acme", Domain: "acme.com"})
			var exec *domain.ExecutionError
			Expect(errors.As(err, &exec)).To(BeTrue())
			Expect(session.Phase).To(Equal(domain.PhaseCompany))
			Expect(session.ReconReport).To(BeEmpty())
		})
	})

	Describe("Generate", func() {
		BeforeEach(func() {
			Expect(wf.Research(ctx, session, domain.CompanyForm{Name: "Acme", Domain: "acme.com"})).To(Succeed())
		})

		It("sends all seven inputs and stores the email", func() {
			err := wf.Generate(ctx, session, domain.ProspectForm{Company: "Globex ", Name: " Jane"})
			Expect(err).NotTo(HaveOccurred())

			Expect(generate.launched).To(HaveLen(1))
			Expect(generate.launched[0]).To(Equal(domain.Inputs{
				"company_name":               "Acme",
				"company_domain":             "acme.com",
				"supplemental_info":          "",
				"recon_report":               "recon",
				"prospect_company":           "Globex",
				"prospect_name":              "Jane",
				"supplemental_prospect_info": "",
			}))
			Expect(session.IcebreakerEmail).To(Equal("Hi Jane,"))
			Expect(session.Phase).To(Equal(domain.PhaseResult))
		})

		It("can prospect another entity while keeping the research", func() {
			Expect(wf.Generate(ctx, session, domain.ProspectForm{Name: "Jane"})).To(Succeed())
			session.ResetProspect()

			Expect(session.Phase).To(Equal(domain.PhaseProspect))
			Expect(session.ReconReport).To(Equal("recon"))
			Expect(session.ProspectName).To(BeEmpty())
			Expect(session.IcebreakerEmail).To(BeEmpty())
		})
	})

	Describe("RunStage", func() {
		It("rejects unknown stages", func() {
			_, err := wf.RunStage(ctx, domain.Stage("other"), nil)
			Expect(err).To(HaveOccurred())
		})

		It("fails when the stage has no client", func() {
			wf = service.NewWorkflow(research, nil, service.NewWaiter(&recordingSleeper{}, nil), nil, service.WaitOptions{}, nil)
			_, err := wf.RunStage(ctx, domain.StageGenerate, domain.Inputs{})
			Expect(err).To(MatchError(domain.ErrMissingEndpoint))
		})
	})

	Context("with an artifact store", func() {
		It("exports the stage inputs and result", func() {
			dir := GinkgoT().TempDir()
			wf = service.NewWorkflow(research, generate, service.NewWaiter(&recordingSleeper{}, nil),
				localstorage.NewLocalStorage(dir), service.WaitOptions{}, nil)

			result, err := wf.RunStage(ctx, domain.StageResearch, domain.Inputs{"company_name": "Acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("recon"))

			runs, err := os.ReadDir(filepath.Join(dir, "runs"))
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))

			runDir := filepath.Join(dir, "runs", runs[0].Name())
			inputs, err := os.ReadFile(filepath.Join(runDir, "research_inputs.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inputs).To(MatchJSON(`{"company_name":"Acme"}`))

			saved, err := os.ReadFile(filepath.Join(runDir, "research_result.md"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(saved)).To(Equal("recon"))
		})
	})
})

var _ = Describe("UserMessage", func() {
	DescribeTable("renders stage failures for display",
		func(stage domain.Stage, err error, expected string) {
			Expect(service.UserMessage(stage, err)).To(Equal(expected))
		},
		Entry("research timeout", domain.StageResearch,
			&domain.TimeoutError{JobID: "j", Timeout: time.Minute},
			"Company research timed out. Please try again."),
		Entry("generate timeout", domain.StageGenerate,
			&domain.TimeoutError{JobID: "j", Timeout: time.Minute},
			"Icebreaker generation timed out. Please try again."),
		Entry("research execution error", domain.StageResearch,
			&domain.ExecutionError{JobID: "j"},
			"Error during company research: crew execution failed (kickoff_id: j)"),
		Entry("generate unexpected state", domain.StageGenerate,
			&domain.UnexpectedStateError{JobID: "j", State: "bogus"},
			"Error generating icebreaker: crew entered unexpected state: bogus (kickoff_id: j)"),
		Entry("missing company", domain.StageResearch,
			service.ErrMissingCompany,
			"Company Name and Company Domain are required."),
	)
})
