package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"amplifier/internal/config"
	errs "amplifier/internal/errors"
	"amplifier/internal/session"
)

const projectScanWorkers = 8

// newSessionCommand creates the session subcommand tree
func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "List, inspect and clean up stored sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			allProjects, _ := cmd.Flags().GetBool("all-projects")
			if allProjects {
				return runSessionListAllProjects(limit)
			}
			return runSessionList(limit)
		},
	}
	listCmd.Flags().IntP("limit", "n", 10, "Maximum sessions to list (0 for all)")
	listCmd.Flags().Bool("all-projects", false, "List sessions across every project")
	cmd.AddCommand(listCmd)

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Replay a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detailed, _ := cmd.Flags().GetBool("detailed")
			return runSessionShow(args[0], detailed)
		},
	}
	showCmd.Flags().BoolP("detailed", "d", false, "Include thinking and tool activity")
	cmd.AddCommand(showCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return runSessionDelete(args[0], force)
		},
	}
	deleteCmd.Flags().BoolP("force", "f", false, "Delete without confirmation")
	cmd.AddCommand(deleteCmd)

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove sessions older than a retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			return runSessionClean(days)
		},
	}
	cleanCmd.Flags().Int("days", 30, "Remove sessions not modified in this many days")
	cmd.AddCommand(cleanCmd)

	return cmd
}

func runSessionList(limit int) error {
	store, err := session.NewStore("")
	if err != nil {
		return err
	}

	ids := store.ListSessions()
	if len(ids) == 0 {
		fmt.Println(yellow("No sessions found"))
		return nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	fmt.Println(bold("Sessions:"))
	for _, id := range ids {
		printSessionLine(store, "", id)
	}
	return nil
}

func printSessionLine(store *session.Store, project, id string) {
	summary := gray("(no metadata)")
	if _, metadata, err := store.Load(id); err == nil {
		parts := make([]string, 0, 3)
		if profile, _ := metadata["profile"].(string); profile != "" {
			parts = append(parts, "profile "+profile)
		}
		if created, _ := metadata["created"].(string); created != "" {
			parts = append(parts, created)
		}
		if turns, ok := metadata["turn_count"].(float64); ok {
			parts = append(parts, fmt.Sprintf("%d turn(s)", int(turns)))
		}
		if len(parts) > 0 {
			summary = gray(strings.Join(parts, ", "))
		}
	}

	if project != "" {
		fmt.Printf("  %s %s %s\n", cyan(project), id, summary)
	} else {
		fmt.Printf("  %s %s\n", id, summary)
	}
}

type projectSession struct {
	project  string
	id       string
	modified time.Time
}

// runSessionListAllProjects scans every project directory under
// ~/.amplifier/projects concurrently and merges the results newest first.
func runSessionListAllProjects(limit int) error {
	root, err := config.ProjectsRoot()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println(yellow("No sessions found"))
			return nil
		}
		return err
	}

	var (
		mu   sync.Mutex
		rows []projectSession
	)

	var g errgroup.Group
	g.SetLimit(projectScanWorkers)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project := entry.Name()
		sessionsDir := filepath.Join(root, project, "sessions")

		g.Go(func() error {
			dirs, err := os.ReadDir(sessionsDir)
			if err != nil {
				return nil // project without sessions
			}
			var found []projectSession
			for _, dir := range dirs {
				if !dir.IsDir() || strings.HasPrefix(dir.Name(), ".") {
					continue
				}
				modified := time.Time{}
				if info, err := dir.Info(); err == nil {
					modified = info.ModTime()
				}
				found = append(found, projectSession{project: project, id: dir.Name(), modified: modified})
			}
			mu.Lock()
			rows = append(rows, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println(yellow("No sessions found"))
		return nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].modified.After(rows[j].modified) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	fmt.Println(bold("Sessions (all projects):"))
	for _, row := range rows {
		fmt.Printf("  %s %s %s\n", cyan(row.project), row.id, gray(row.modified.Format("2006-01-02 15:04")))
	}
	return nil
}

func runSessionShow(id string, detailed bool) error {
	store, err := session.NewStore("")
	if err != nil {
		return err
	}

	transcript, metadata, err := store.Load(id)
	if err != nil {
		if errs.IsNotFound(err) {
			return fmt.Errorf("session %q not found", id)
		}
		return err
	}

	fmt.Printf("%s %s\n", bold("Session:"), id)
	if profile, _ := metadata["profile"].(string); profile != "" {
		fmt.Printf("%s %s\n", bold("Profile:"), profile)
	}
	if model, _ := metadata["model"].(string); model != "" {
		fmt.Printf("%s %s\n", bold("Model:"), model)
	}
	if created, _ := metadata["created"].(string); created != "" {
		fmt.Printf("%s %s\n", bold("Created:"), created)
	}
	if recovered, _ := metadata["recovered"].(bool); recovered {
		fmt.Println(yellow("Metadata was recovered after corruption; some fields may be missing"))
	}
	fmt.Println()

	if len(transcript) == 0 {
		fmt.Println(gray("(empty transcript)"))
		return nil
	}

	// Markdown rendering only pays off on a TTY; plain text otherwise.
	renderer, err := NewMarkdownRenderer(!isTTY())
	if err != nil {
		renderer = nil
	}

	for _, message := range transcript {
		printMessage(message, renderer, detailed)
	}
	return nil
}

func printMessage(message session.Message, renderer *MarkdownRenderer, detailed bool) {
	role, _ := message["role"].(string)
	content, _ := message["content"].(string)

	switch role {
	case "user":
		fmt.Printf("%s %s\n\n", blue(bold("You:")), content)
	case "assistant":
		if detailed {
			if thinking, _ := message["thinking_text"].(string); thinking != "" {
				fmt.Printf("%s %s\n", yellow("Thinking:"), gray(thinking))
			}
		}
		fmt.Println(green(bold("Assistant:")))
		if renderer != nil {
			fmt.Print(renderer.Render(content))
		} else {
			fmt.Println(content)
		}
		fmt.Println()
	case "tool":
		if detailed {
			name, _ := message["name"].(string)
			fmt.Printf("%s %s\n%s\n\n", cyan("Tool:"), name, gray(content))
		}
	default:
		if detailed {
			fmt.Printf("%s %s\n\n", gray(role+":"), gray(content))
		}
	}
}

func runSessionDelete(id string, force bool) error {
	store, err := session.NewStore("")
	if err != nil {
		return err
	}

	if !store.Exists(id) {
		return fmt.Errorf("session %q not found", id)
	}

	if !force {
		if !isTTY() {
			return fmt.Errorf("refusing to delete without --force on a non-interactive terminal")
		}
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete session %s", id),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println(yellow("Aborted"))
			return nil
		}
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("%s Deleted session %s\n", green("✓"), id)
	return nil
}

func runSessionClean(days int) error {
	store, err := session.NewStore("")
	if err != nil {
		return err
	}

	removed, err := store.CleanupOldSessions(days)
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Printf("No sessions older than %d day(s)\n", days)
		return nil
	}
	fmt.Printf("%s Removed %d session(s) older than %d day(s)\n", green("✓"), removed, days)
	return nil
}
