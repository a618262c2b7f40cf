// ABOUTME: Data models for users, ingested emails, and campaign artifacts
// ABOUTME: Defines User, Email, Campaign, Lead, Template, and Cadence structs
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name,omitempty"`
	GoogleID           string    `json:"google_id,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Email is one ingested sent-mail message. Immutable once persisted;
// uniqueness is (UserID, MessageID).
type Email struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	To        string    `json:"to,omitempty"`
	Cc        string    `json:"cc,omitempty"`
	Bcc       string    `json:"bcc,omitempty"`
	Body      string    `json:"body,omitempty"`
	SentAt    time.Time `json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Campaign struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Query       string    `json:"query,omitempty"`
	StylePrompt string    `json:"style_prompt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Lead struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Company    string    `json:"company,omitempty"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Template struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CadenceStep is one follow-up in a campaign's send schedule.
type CadenceStep struct {
	DayOffset int    `json:"day_offset"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type Cadence struct {
	ID         uuid.UUID     `json:"id"`
	CampaignID uuid.UUID     `json:"campaign_id"`
	Steps      []CadenceStep `json:"steps"`
	CreatedAt  time.Time     `json:"created_at"`
}

// QuestionnaireAnswers holds the user-facing half of onboarding.
type QuestionnaireAnswers struct {
	Company      string `json:"company,omitempty"`
	Role         string `json:"role,omitempty"`
	Audience     string `json:"audience,omitempty"`
	Goal         string `json:"goal,omitempty"`
	CallToAction string `json:"call_to_action,omitempty"`
}

// Onboarding progress steps broadcast from the background context.
const (
	StepAuth            = "auth"
	StepSetup           = "setup"
	StepFetching        = "fetching"
	StepSaving          = "saving"
	StepClustering      = "clustering"
	StepBackendComplete = "backend_complete"
	StepError           = "error"
)

// Pipeline status constants.
const (
	PipelineIdle    = "idle"
	PipelineRunning = "running"
	PipelineError   = "error"
)
