package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/takeshq/takes/internal/models"
	"github.com/takeshq/takes/internal/periods"
	"github.com/takeshq/takes/internal/store"
)

// Color constants for the sessions listing
const (
	colorHeader = "#7C3AED" // Purple accent
	colorActive = "#22C55E" // Green
	colorPaused = "#F59E0B" // Amber
	colorMuted  = "#6D7383" // Muted grey
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorHeader))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorActive))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPaused))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List open takes sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := setupLogger(cfg.Logging)
		s, err := store.Open(cfg.Storage.Path, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		active, err := s.FindByStatus(models.StatusActive)
		if err != nil {
			return err
		}
		paused, err := s.FindByStatus(models.StatusPaused)
		if err != nil {
			return err
		}

		open := append(active, paused...)
		if len(open) == 0 {
			fmt.Println(mutedStyle.Render("No open sessions"))
			return nil
		}

		fmt.Println(headerStyle.Render("Open takes sessions"))
		now := time.Now()
		for _, take := range open {
			printSession(&take, now)
		}
		return nil
	},
}

func printSession(take *models.Take, now time.Time) {
	status := activeStyle.Render("active")
	detail := fmt.Sprintf("%s remaining", periods.PrettyPrint(take.EndTime().Sub(now)))
	if take.Status == models.StatusPaused {
		status = pausedStyle.Render("paused")
		if take.PausedAt != nil {
			detail = fmt.Sprintf("paused for %s", periods.PrettyPrint(now.Sub(*take.PausedAt)))
		}
	}

	line := fmt.Sprintf("  %s  %s  %s", take.UserID, status, detail)
	if take.Description != "" {
		line += mutedStyle.Render(fmt.Sprintf("  (%s)", take.Description))
	}
	fmt.Println(line)
}
