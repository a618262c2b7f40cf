// ABOUTME: Interactive onboarding command: sign in, questionnaire, backend pipeline
// ABOUTME: Runs the TUI on a terminal, a plain stdin fallback otherwise
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/harperreed/skiff/auth"
	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
	"github.com/harperreed/skiff/onboarding"
	"github.com/harperreed/skiff/session"
	"github.com/harperreed/skiff/tui"
)

// Onboard signs the user in interactively and runs both onboarding tracks.
func Onboard(database *sql.DB, cfg *config.Config) error {
	ctx := context.Background()

	fmt.Println("Signing in with Google...")
	token, err := auth.InteractiveToken(ctx)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	profile, err := auth.FetchProfile(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	user, err := db.FindOrCreateUser(database, profile.Email, profile.DisplayName, profile.GoogleID)
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	fmt.Printf("✓ Signed in as %s\n", user.Email)

	if user.OnboardingComplete {
		fmt.Println("Onboarding is already complete. Run 'skiff status' to see your campaigns.")
		return nil
	}

	cache, err := session.OpenCache(config.CachePath())
	if err != nil {
		cache = nil
	} else {
		defer cache.Close()
	}

	daemon := NewDaemon(database, cfg, cache)
	dispatcher := daemon.Dispatcher()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		events, cancel := dispatcher.Subscribe()
		defer cancel()

		model := tui.NewModel(database, dispatcher, events, user)
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("onboarding UI failed: %w", err)
		}
		return nil
	}

	return plainOnboard(ctx, dispatcher, user)
}

// plainOnboard drives both tracks without a TUI: the backend pipeline runs in
// the background while the questionnaire reads from stdin, and the tracks
// join through the synchronizer.
func plainOnboard(ctx context.Context, dispatcher *bus.Dispatcher, user *models.User) error {
	done := make(chan struct{})
	var finalizeErr error

	tracks := onboarding.NewSynchronizer(func(state onboarding.State) {
		finalizeErr = dispatcher.Request(ctx, bus.ActionCompleteOnboarding,
			map[string]string{"user_id": user.ID.String()}, nil)
		close(done)
	}, nil)

	events, cancel := dispatcher.Subscribe()
	defer cancel()

	backendFailed := make(chan string, 1)
	go func() {
		for event := range events {
			switch event.Step {
			case models.StepFetching, models.StepSaving:
				fmt.Printf("⟳ %s (%d/%d)\n", event.Step, event.Fetched, event.Total)
			case models.StepBackendComplete:
				fmt.Printf("✓ Imported %d emails, created %d campaigns\n",
					event.EmailCount, event.CampaignCount)
				tracks.Apply(onboarding.BackendCompleted{
					EmailCount:       event.EmailCount,
					CampaignsCreated: event.CampaignCount,
					CampaignIDs:      event.CampaignIDs,
				})
			case models.StepError:
				tracks.Apply(onboarding.BackendFailed{Error: event.Message})
				select {
				case backendFailed <- event.Message:
				default:
				}
			}
		}
	}()

	if err := dispatcher.Request(ctx, bus.ActionStartOnboarding,
		map[string]string{"user_id": user.ID.String()}, nil); err != nil {
		return fmt.Errorf("failed to start onboarding pipeline: %w", err)
	}

	answers, err := promptQuestionnaire(os.Stdin)
	if err != nil {
		return err
	}
	if err := dispatcher.Request(ctx, bus.ActionSubmitQuestionnaire, map[string]any{
		"user_id": user.ID.String(),
		"answers": answers,
	}, nil); err != nil {
		return fmt.Errorf("failed to save questionnaire: %w", err)
	}
	tracks.Apply(onboarding.QuestionnaireCompleted{Answers: answers})

	fmt.Println("Waiting for email import to finish...")
	select {
	case <-done:
		if finalizeErr != nil {
			return fmt.Errorf("failed to finish onboarding: %w", finalizeErr)
		}
		fmt.Println("✓ Onboarding complete")
		return nil
	case msg := <-backendFailed:
		return fmt.Errorf("email import failed: %s", msg)
	}
}

func promptQuestionnaire(in *os.File) (models.QuestionnaireAnswers, error) {
	reader := bufio.NewReader(in)
	ask := func(prompt string) (string, error) {
		fmt.Printf("%s: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	var answers models.QuestionnaireAnswers
	var err error
	if answers.Company, err = ask("What company are you reaching out for?"); err != nil {
		return answers, err
	}
	if answers.Role, err = ask("What is your role?"); err != nil {
		return answers, err
	}
	if answers.Audience, err = ask("Who are you trying to reach?"); err != nil {
		return answers, err
	}
	if answers.Goal, err = ask("What is the goal of your outreach?"); err != nil {
		return answers, err
	}
	if answers.CallToAction, err = ask("What should recipients do next?"); err != nil {
		return answers, err
	}
	return answers, nil
}
