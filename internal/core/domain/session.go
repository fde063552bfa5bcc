package domain

import "time"

// Stage names one of the two crew runs of the prospecting workflow.
type Stage string

const (
	StageResearch Stage = "research"
	StageGenerate Stage = "generate"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s == StageResearch || s == StageGenerate
}

// Phase is the screen the user is on.
type Phase int

const (
	PhaseCompany Phase = iota + 1
	PhaseProspect
	PhaseResult
)

// CompanyForm is what the user enters about their own company.
type CompanyForm struct {
	Name         string
	Domain       string
	Supplemental string
}

// ProspectForm is what the user enters about the prospect. All optional.
type ProspectForm struct {
	Company      string
	Name         string
	Supplemental string
}

// Session carries everything collected across both stages.
type Session struct {
	Phase Phase

	CompanyName      string
	CompanyDomain    string
	SupplementalInfo string
	ReconReport      string

	ProspectCompany          string
	ProspectName             string
	SupplementalProspectInfo string
	IcebreakerEmail          string

	ErrorMessage string
	UpdatedAt    time.Time
}

// NewSession returns a session at the company form.
func NewSession() *Session {
	s := &Session{}
	s.ResetAll()
	return s
}

// ResetAll discards everything and starts over at the company form.
func (s *Session) ResetAll() {
	*s = Session{Phase: PhaseCompany}
}

// ResetProspect clears prospect data but keeps the company research.
func (s *Session) ResetProspect() {
	s.Phase = PhaseProspect
	s.ProspectCompany = ""
	s.ProspectName = ""
	s.SupplementalProspectInfo = ""
	s.IcebreakerEmail = ""
	s.ErrorMessage = ""
}

// ResearchInputs are the inputs of the research crew.
func (s *Session) ResearchInputs() Inputs {
	return Inputs{
		"company_name":      s.CompanyName,
		"company_domain":    s.CompanyDomain,
		"supplemental_info": s.SupplementalInfo,
	}
}

// GenerateInputs are the inputs of the icebreaker crew.
func (s *Session) GenerateInputs() Inputs {
	in := s.ResearchInputs()
	in["recon_report"] = s.ReconReport
	in["prospect_company"] = s.ProspectCompany
	in["prospect_name"] = s.ProspectName
	in["supplemental_prospect_info"] = s.SupplementalProspectInfo
	return in
}

// TakeError returns the pending error message and clears it, so it is shown once.
func (s *Session) TakeError() string {
	msg := s.ErrorMessage
	s.ErrorMessage = ""
	return msg
}
