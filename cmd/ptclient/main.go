// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// ptclient is a command-line client for a ptracker service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/wingedpig/ptclient/internal/app"
	"github.com/wingedpig/ptclient/internal/config"
	"github.com/wingedpig/ptclient/internal/events"
	"github.com/wingedpig/ptclient/internal/logging"
	"github.com/wingedpig/ptclient/internal/notify"
	"github.com/wingedpig/ptclient/pkg/client"
)

// EnvSession carries the session cookie value when -session is not given.
const EnvSession = "PTCLIENT_SESSION"

var (
	version    = "0.1.0"
	jsonOutput = false
	configPath = ""
	sessionID  = ""

	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	sessionID = os.Getenv(EnvSession)

	args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "version", "-v", "--version":
		fmt.Printf("ptclient %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "me":
		err = cmdMe(args)
	case "projects":
		err = cmdProjects(args)
	case "project":
		err = cmdProject(args)
	case "members":
		err = cmdMembers(args)
	case "tasks":
		err = cmdTasks(args)
	case "task":
		err = cmdTask(args)
	case "comments":
		err = cmdComments(args)
	case "public":
		err = cmdPublic(args)
	case "dashboard":
		err = cmdDashboard(args)
	case "watch":
		err = cmdWatch(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseGlobalFlags removes the global flags from args and returns the rest.
func parseGlobalFlags(args []string) ([]string, error) {
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-json":
			jsonOutput = true
		case "-config", "-c":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path", args[i])
			}
			configPath = args[i+1]
			i++
		case "-session":
			if i+1 >= len(args) {
				return nil, errors.New("-session requires a value")
			}
			sessionID = args[i+1]
			i++
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, nil
}

func printUsage() {
	fmt.Println(`ptclient - Talk to a ptracker service

Usage:
  ptclient [-json] [-config path] [-session id] <command> [arguments]

Global Flags:
  -json              Output in JSON format
  -config, -c path   Config file (default: ptclient.hjson, ptclient.json or ptclient.yaml)
  -session id        Session cookie value

Environment:
  PTCLIENT_API        Base URL of the ptracker API (default: http://localhost:8081/api)
  PTCLIENT_WS         Realtime endpoint (default: derived from PTCLIENT_API)
  PTCLIENT_SESSION    Session cookie value
  PTCLIENT_LOG_LEVEL  Log level (trace, debug, info, warn, error, off)

Commands:
  me                                Show the logged-in user
  projects [-page N] [-limit N]     List your projects
  project <id>                      Show one project
  members <project>                 List project members
  tasks <project> [-page N] [-limit N]
                                    List tasks of a project
  task <project> <task>             Show one task
  comments <project> <task>         List comments on a task
  public [-page N] [-limit N]       List public projects
  dashboard                         Show recent projects and tasks

  watch [options]                   Print realtime notifications until interrupted
    -metrics <addr>                 Serve Prometheus metrics on addr
    -pattern <pattern>              Only print kinds matching pattern (default: *)

  version                           Show version
  help                              Show this help`)
}

func loadConfig() error {
	loader := config.NewLoader()
	if configPath == "" {
		if found, err := loader.FindConfig(); err == nil {
			configPath = found
		}
	}

	if configPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := loader.LoadWithDefaults(context.Background(), configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return err
	}
	logger = logging.New(os.Stderr, "ptclient", cfg.Logging.Level)
	return nil
}

func newApp(reg *prometheus.Registry) (*app.App, error) {
	return app.New(app.Options{
		Config:     cfg,
		ConfigPath: configPath,
		SessionID:  sessionID,
		Logger:     logger,
		Registry:   reg,
	})
}

func newClient() (*client.Client, error) {
	a, err := newApp(nil)
	if err != nil {
		return nil, err
	}
	return a.Client(), nil
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// parsePageArgs reads -page and -limit from args and returns the remaining
// positional arguments.
func parsePageArgs(args []string) (page, limit int, rest []string, err error) {
	page, limit = 1, 10
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-page", "-limit":
			if i+1 >= len(args) {
				return 0, 0, nil, fmt.Errorf("%s requires a number", args[i])
			}
			n, convErr := strconv.Atoi(args[i+1])
			if convErr != nil || n < 1 {
				return 0, 0, nil, fmt.Errorf("invalid %s: %s", args[i], args[i+1])
			}
			if args[i] == "-page" {
				page = n
			} else {
				limit = n
			}
			i++
		default:
			rest = append(rest, args[i])
		}
	}
	return page, limit, rest, nil
}

func cmdMe(args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	me, err := c.Auth.Me(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(me)
		return nil
	}
	fmt.Printf("ID:       %s\n", me.ID)
	fmt.Printf("Username: %s\n", me.Username)
	fmt.Printf("Name:     %s\n", me.Name())
	fmt.Printf("Email:    %s\n", dash(me.Email))
	return nil
}

func printProjects(projects []client.Project) {
	fmt.Printf("%-38s %-24s %-8s %-6s %-6s %-6s %s\n", "ID", "NAME", "ROLE", "OPEN", "DOING", "DONE", "DROPPED")
	fmt.Println(strings.Repeat("-", 100))
	for _, p := range projects {
		fmt.Printf("%-38s %-24s %-8s %-6d %-6d %-6d %d\n",
			p.ID,
			truncate(p.Name, 24),
			dash(p.Role),
			p.UnassignedTasks,
			p.OngoingTasks,
			p.CompletedTasks,
			p.AbandonedTasks,
		)
	}
}

func cmdProjects(args []string) error {
	page, limit, _, err := parsePageArgs(args)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	result, err := c.Projects.List(context.Background(), page, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(result)
		return nil
	}
	printProjects(result.Projects)
	printMore(result.HasNext, page)
	return nil
}

func cmdProject(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: ptclient project <id>")
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	p, err := c.Projects.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	printProjectDetails(p)
	return nil
}

func printProjectDetails(p *client.ProjectDetails) {
	if jsonOutput {
		printJSON(p)
		return
	}
	owner := p.Owner
	if p.OwnerMember != nil {
		owner = p.OwnerMember.Name()
	}
	fmt.Printf("ID:          %s\n", p.ID)
	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Description: %s\n", dash(p.Description))
	fmt.Printf("Skills:      %s\n", dash(p.Skills))
	fmt.Printf("Owner:       %s\n", dash(owner))
	fmt.Printf("Members:     %d\n", p.MemberCount)
	if p.JoinStatus != "" {
		fmt.Printf("Join status: %s\n", p.JoinStatus)
	}
	fmt.Printf("Tasks:       %d open, %d in progress, %d done, %d abandoned\n",
		p.UnassignedTasks, p.OngoingTasks, p.CompletedTasks, p.AbandonedTasks)
}

func cmdMembers(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: ptclient members <project>")
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	members, err := c.Projects.Members(context.Background(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(members)
		return nil
	}
	fmt.Printf("%-38s %-20s %-20s %s\n", "ID", "USERNAME", "NAME", "EMAIL")
	fmt.Println(strings.Repeat("-", 100))
	for _, m := range members {
		fmt.Printf("%-38s %-20s %-20s %s\n", m.ID, truncate(m.Username, 20), truncate(m.Name(), 20), dash(m.Email))
	}
	return nil
}

func cmdTasks(args []string) error {
	page, limit, rest, err := parsePageArgs(args)
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return errors.New("usage: ptclient tasks <project> [-page N] [-limit N]")
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	result, err := c.Tasks.List(context.Background(), rest[0], page, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(result)
		return nil
	}
	fmt.Printf("%-38s %-30s %-12s %s\n", "ID", "TITLE", "STATUS", "ASSIGNEES")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range result.Tasks {
		fmt.Printf("%-38s %-30s %-12s %s\n", t.ID, truncate(t.Title, 30), t.Status, assigneeNames(t.Assignees))
	}
	printMore(result.HasNext, page)
	return nil
}

func cmdTask(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: ptclient task <project> <task>")
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	t, err := c.Tasks.Get(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(t)
		return nil
	}
	description := ""
	if t.Description != nil {
		description = *t.Description
	}
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Status:      %s\n", t.Status)
	fmt.Printf("Description: %s\n", dash(description))
	fmt.Printf("Assignees:   %s\n", assigneeNames(t.Assignees))
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	return nil
}

func cmdComments(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: ptclient comments <project> <task>")
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	comments, err := c.Tasks.Comments(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(comments)
		return nil
	}
	for _, cm := range comments {
		fmt.Printf("[%s] %s: %s\n", cm.CreatedAt.Format("2006-01-02 15:04"), commentAuthor(cm), cm.Content)
	}
	return nil
}

func cmdPublic(args []string) error {
	page, limit, _, err := parsePageArgs(args)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	result, err := c.Public.List(context.Background(), page, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(result)
		return nil
	}
	printProjects(result.Projects)
	printMore(result.HasNext, page)
	return nil
}

type dashboard struct {
	Created    []client.Project       `json:"created_projects"`
	Joined     []client.Project       `json:"joined_projects"`
	Assigned   []client.DashboardTask `json:"assigned_tasks"`
	Unassigned []client.DashboardTask `json:"unassigned_tasks"`
}

func cmdDashboard(args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var d dashboard
	if d.Created, err = c.Dashboard.CreatedProjects(ctx); err != nil {
		return err
	}
	if d.Joined, err = c.Dashboard.JoinedProjects(ctx); err != nil {
		return err
	}
	if d.Assigned, err = c.Dashboard.AssignedTasks(ctx); err != nil {
		return err
	}
	if d.Unassigned, err = c.Dashboard.UnassignedTasks(ctx); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(d)
		return nil
	}
	fmt.Println("Projects you created:")
	printProjects(d.Created)
	fmt.Println("\nProjects you joined:")
	printProjects(d.Joined)
	fmt.Println("\nTasks assigned to you:")
	printDashboardTasks(d.Assigned)
	fmt.Println("\nUnassigned tasks:")
	printDashboardTasks(d.Unassigned)
	return nil
}

func printDashboardTasks(tasks []client.DashboardTask) {
	fmt.Printf("%-38s %-24s %-30s %s\n", "ID", "PROJECT", "TITLE", "STATUS")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range tasks {
		fmt.Printf("%-38s %-24s %-30s %s\n", t.ID, truncate(t.ProjectName, 24), truncate(t.Title, 30), t.Status)
	}
}

func cmdWatch(args []string) error {
	pattern := "*"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-metrics":
			if i+1 >= len(args) {
				return errors.New("-metrics requires an address")
			}
			cfg.Metrics.Listen = args[i+1]
			i++
		case "-pattern":
			if i+1 >= len(args) {
				return errors.New("-pattern requires a value")
			}
			pattern = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown watch option: %s", args[i])
		}
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Listen != "" {
		reg = prometheus.NewRegistry()
	}
	a, err := newApp(reg)
	if err != nil {
		return err
	}

	if _, err := a.Registry().Subscribe(pattern, printNotification); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := a.Connect(ctx)
	if err != nil {
		a.Shutdown()
		return err
	}
	logger.Info().Str("user", me.Username).Str("url", a.Channel().Address()).Msg("watching notifications")

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, app.ErrLoggedOut) {
			return errors.New("session expired, log in again")
		}
		return err
	}
	return nil
}

func printNotification(_ context.Context, n events.Notification) error {
	if jsonOutput {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("%s  %-18s %s\n", n.ReceivedAt.Format("15:04:05"), n.Kind, notify.Describe(n))
	return nil
}

func commentAuthor(c client.Comment) string {
	if c.User == nil {
		return "unknown"
	}
	if c.User.DisplayName != nil && *c.User.DisplayName != "" {
		return *c.User.DisplayName
	}
	return c.User.Username
}

func assigneeNames(assignees []client.Assignee) string {
	if len(assignees) == 0 {
		return "-"
	}
	names := make([]string, 0, len(assignees))
	for _, a := range assignees {
		names = append(names, a.Username)
	}
	return strings.Join(names, ",")
}

func printMore(hasNext bool, page int) {
	if hasNext && !jsonOutput {
		fmt.Printf("\nMore results: -page %d\n", page+1)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
