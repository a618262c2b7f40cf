// ABOUTME: Onboarding status tool test suite
// ABOUTME: Tests status reporting against users, emails, campaigns, and pipeline state
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestOnboardingStatus(t *testing.T) {
	database, cleanup := setupHandlerTestDB(t)
	defer cleanup()

	user, err := db.FindOrCreateUser(database, "ada@example.com", "Ada Lovelace", "google-123")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	emails := []models.Email{
		{UserID: user.ID, MessageID: "m1", Subject: "Hello", SentAt: time.Now()},
		{UserID: user.ID, MessageID: "m2", Subject: "World", SentAt: time.Now()},
	}
	if _, err := db.SaveEmails(database, emails); err != nil {
		t.Fatalf("Failed to save emails: %v", err)
	}

	campaign := &models.Campaign{UserID: user.ID, Name: "Founders"}
	if err := db.CreateCampaign(database, campaign); err != nil {
		t.Fatalf("Failed to create campaign: %v", err)
	}

	handlers := NewOnboardingHandlers(database)

	_, output, err := handlers.OnboardingStatus(context.Background(), &mcp.CallToolRequest{}, OnboardingStatusInput{
		UserID: user.ID.String(),
	})
	if err != nil {
		t.Fatalf("OnboardingStatus failed: %v", err)
	}

	if output.Complete {
		t.Error("Expected onboarding incomplete")
	}
	if output.EmailCount != 2 {
		t.Errorf("Expected 2 emails, got %d", output.EmailCount)
	}
	if output.CampaignCount != 1 {
		t.Errorf("Expected 1 campaign, got %d", output.CampaignCount)
	}
	if output.PipelineState != models.PipelineIdle {
		t.Errorf("Expected idle pipeline, got %s", output.PipelineState)
	}
}

func TestOnboardingStatusReportsPipelineError(t *testing.T) {
	database, cleanup := setupHandlerTestDB(t)
	defer cleanup()

	user, err := db.FindOrCreateUser(database, "ada@example.com", "Ada Lovelace", "google-123")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	msg := "gmail unavailable"
	if err := db.UpdatePipelineStatus(database, "onboarding", models.PipelineError, &msg); err != nil {
		t.Fatalf("Failed to update pipeline status: %v", err)
	}

	handlers := NewOnboardingHandlers(database)

	_, output, err := handlers.OnboardingStatus(context.Background(), &mcp.CallToolRequest{}, OnboardingStatusInput{
		UserID: user.ID.String(),
	})
	if err != nil {
		t.Fatalf("OnboardingStatus failed: %v", err)
	}

	if output.PipelineState != models.PipelineError {
		t.Errorf("Expected error pipeline state, got %s", output.PipelineState)
	}
	if output.PipelineError != "gmail unavailable" {
		t.Errorf("Expected pipeline error message, got %q", output.PipelineError)
	}
}

func TestOnboardingStatusUnknownUser(t *testing.T) {
	database, cleanup := setupHandlerTestDB(t)
	defer cleanup()

	handlers := NewOnboardingHandlers(database)

	_, _, err := handlers.OnboardingStatus(context.Background(), &mcp.CallToolRequest{}, OnboardingStatusInput{
		UserID: uuid.New().String(),
	})
	if err == nil {
		t.Fatal("Expected error for unknown user")
	}
}
