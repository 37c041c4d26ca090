// Package onboarding holds the conversational draft-building flow: the draft
// documents the assistant fills in field by field, the system instructions
// that drive each persona, and the annotation feedback loop.
package onboarding

import (
	_ "embed"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

//go:embed instruction_profile.md
var profileInstruction string

//go:embed instruction_project.md
var projectInstruction string

// Role selects which onboarding persona drives the conversation.
type Role string

const (
	RoleProfile Role = "profile"
	RoleProject Role = "project"
)

// Valid reports whether the role is one of the two supported personas.
func (r Role) Valid() bool {
	return r == RoleProfile || r == RoleProject
}

// SystemInstruction returns the persona instruction for the role.
func (r Role) SystemInstruction() string {
	if r == RoleProject {
		return projectInstruction
	}
	return profileInstruction
}

// Welcome messages seeding a fresh conversation. Like the apologies in the
// assistant these default to Chinese, the launch locale.
const (
	ProfileWelcome = "你好！我是你的职业经纪人。请告诉我你的职业背景、核心技能以及你正在寻找什么样的机会。如果有简历（PDF），请直接上传，我会帮你提取亮点。"
	ProjectWelcome = "你好！我是你的 AI 联合创始人助手。为了高效帮你生成项目档案，请告诉我你的项目名称、愿景和目前遇到的核心问题，或者直接上传 BP。"
)

// Welcome returns the seeded assistant greeting for a fresh conversation.
func (r Role) Welcome() string {
	if r == RoleProject {
		return ProjectWelcome
	}
	return ProfileWelcome
}

// ReturningWelcome greets a user whose draft already has a name.
func ReturningWelcome(name string) string {
	return fmt.Sprintf("欢迎回来，%s！我已加载你的个人资料。今天想如何改进它？", name)
}

// ProfileDraft is the talent-side draft document. Fields mirror the published
// profile; the assistant patches them sparsely turn by turn.
type ProfileDraft struct {
	Name                 string   `json:"name" mapstructure:"name"`
	Title                string   `json:"title" mapstructure:"title"`
	Location             string   `json:"location" mapstructure:"location"`
	Bio                  string   `json:"bio" mapstructure:"bio"`
	Skills               []string `json:"skills" mapstructure:"skills"`
	ExperienceHighlights string   `json:"experienceHighlights" mapstructure:"experienceHighlights"`
	Education            string   `json:"education" mapstructure:"education"`
	LookingFor           string   `json:"lookingFor" mapstructure:"lookingFor"`
	Superpower           string   `json:"superpower" mapstructure:"superpower"`
	Others               string   `json:"others" mapstructure:"others"`
	Avatar               string   `json:"avatar" mapstructure:"avatar"`
}

// ProjectDraft is the founder-side draft document.
type ProjectDraft struct {
	Name              string   `json:"name" mapstructure:"name"`
	OneLiner          string   `json:"oneLiner" mapstructure:"oneLiner"`
	Sector            string   `json:"sector" mapstructure:"sector"`
	Location          string   `json:"location" mapstructure:"location"`
	Stage             string   `json:"stage" mapstructure:"stage"`
	Vision            string   `json:"vision" mapstructure:"vision"`
	Problem           string   `json:"problem" mapstructure:"problem"`
	Solution          string   `json:"solution" mapstructure:"solution"`
	TalentNeeds       []string `json:"talentNeeds" mapstructure:"talentNeeds"`
	ProductHighlights string   `json:"productHighlights" mapstructure:"productHighlights"`
	TargetAudience    string   `json:"targetAudience" mapstructure:"targetAudience"`
	BusinessModel     string   `json:"businessModel" mapstructure:"businessModel"`
	Differentiation   string   `json:"differentiation" mapstructure:"differentiation"`
	MarketSize        string   `json:"marketSize" mapstructure:"marketSize"`
	TeamMembers       string   `json:"teamMembers" mapstructure:"teamMembers"`
	WhyNow            string   `json:"whyNow" mapstructure:"whyNow"`
	LongTermMoat      string   `json:"longTermMoat" mapstructure:"longTermMoat"`
	RoadmapFinance    string   `json:"roadmapFinance" mapstructure:"roadmapFinance"`
	Others            string   `json:"others" mapstructure:"others"`
}

// Apply merges a sparse update patch into the draft. Only keys present in the
// patch are touched; fields the patch omits keep their current values. An
// explicit empty string in the patch clears the field, matching a shallow
// object spread.
func (d *ProfileDraft) Apply(updates map[string]any) error {
	return applyPatch(d, updates)
}

// Apply merges a sparse update patch into the draft.
func (d *ProjectDraft) Apply(updates map[string]any) error {
	return applyPatch(d, updates)
}

func applyPatch(target any, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build patch decoder: %w", err)
	}

	if err := decoder.Decode(updates); err != nil {
		return fmt.Errorf("apply draft patch: %w", err)
	}
	return nil
}
