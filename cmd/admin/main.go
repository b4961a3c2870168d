// admin is the operator CLI for tasks that have no HTTP surface: promoting
// accounts, inspecting and editing overdue thresholds, and printing the
// overdue report.
//
//	admin promote --email ops@example.com --role government --department roads
//	admin thresholds
//	admin set-threshold --department water --pending 48 --in-progress 96
//	admin overdue [--json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"fixit-be/config"
	"fixit-be/models"
	"fixit-be/repository"
	"fixit-be/services"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const usage = `usage: admin <command> [flags]

commands:
  promote         change a user's role
  thresholds      list effective overdue limits
  set-threshold   configure a department's overdue limits
  overdue         print the overdue report
`

// system is the operator identity used for threshold writes.
var system = &models.User{Name: "admin-cli", Role: models.RoleAdmin}

type app struct {
	users      repository.UserRepository
	thresholds *services.ThresholdService
	dashboard  *services.DashboardService
	out        io.Writer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Print(usage)
		return nil
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, db, err := config.ConnectDB(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	thresholds := services.NewThresholdService(repository.NewThresholdRepository(db), cfg.DefaultLimits)
	a := &app{
		users:      repository.NewUserRepository(db),
		thresholds: thresholds,
		dashboard:  services.NewDashboardService(repository.NewIssueRepository(db), thresholds),
		out:        os.Stdout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.dispatch(ctx, args[0], args[1:])
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "promote":
		return a.promote(ctx, args)
	case "thresholds":
		return a.listThresholds(ctx)
	case "set-threshold":
		return a.setThreshold(ctx, args)
	case "overdue":
		return a.overdue(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

func (a *app) promote(ctx context.Context, args []string) error {
	var email, role, department string
	flags := pflag.NewFlagSet("promote", pflag.ContinueOnError)
	flags.StringVar(&email, "email", "", "account email")
	flags.StringVar(&role, "role", string(models.RoleAdmin), "new role")
	flags.StringVar(&department, "department", "", "department for government and field_worker roles")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if email == "" {
		return errors.New("--email is required")
	}

	r := models.Role(role)
	if !r.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	var dept *models.Department
	if department != "" {
		d, ok := models.ParseDepartment(department)
		if !ok {
			return fmt.Errorf("invalid department %q", department)
		}
		dept = &d
	}
	if r.NeedsDepartment() && dept == nil {
		return fmt.Errorf("role %s requires --department", r)
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := a.users.SetRole(ctx, user.ID, r, dept); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", user.Email, r)
	return nil
}

func (a *app) listThresholds(ctx context.Context) error {
	views, err := a.thresholds.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPARTMENT\tPENDING (h)\tIN PROGRESS (h)\tSOURCE")
	for _, v := range views {
		source := "default"
		if v.Configured {
			source = "configured"
		}
		fmt.Fprintf(w, "%s\t%g\t%g\t%s\n", v.Department, v.MaxPendingHours, v.MaxInProgressHours, source)
	}
	return w.Flush()
}

func (a *app) setThreshold(ctx context.Context, args []string) error {
	var department, description string
	var pending, inProgress float64
	var reset bool
	flags := pflag.NewFlagSet("set-threshold", pflag.ContinueOnError)
	flags.StringVarP(&department, "department", "d", "", "department to configure")
	flags.Float64Var(&pending, "pending", 0, "max hours an issue may stay reported")
	flags.Float64Var(&inProgress, "in-progress", 0, "max hours an issue may stay in progress")
	flags.StringVar(&description, "description", "", "note shown on the dashboard")
	flags.BoolVar(&reset, "reset", false, "return the department to the default limits")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if department == "" {
		return errors.New("--department is required")
	}

	if reset {
		if err := a.thresholds.Deactivate(ctx, system, department); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s reset to defaults\n", department)
		return nil
	}

	t, err := a.thresholds.Set(ctx, system, department, services.ThresholdInput{
		MaxPendingHours:    pending,
		MaxInProgressHours: inProgress,
		Description:        description,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: pending %gh, in progress %gh\n", t.Department, t.MaxPendingHours, t.MaxInProgressHours)
	return nil
}

func (a *app) overdue(ctx context.Context, args []string) error {
	var asJSON bool
	flags := pflag.NewFlagSet("overdue", pflag.ContinueOnError)
	flags.BoolVar(&asJSON, "json", false, "print the full report as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	report, err := a.dashboard.Dashboard(ctx, system)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ISSUE\tDEPARTMENT\tSTATUS\tHOURS\tLIMIT\tOVERDUE BY")
	for _, list := range [][]services.OverdueIssue{report.Pending, report.InProgress} {
		for _, o := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%g\t%.2f\n", o.IssueID.Hex(), o.Department, o.Status, o.HoursInStatus, o.ThresholdHours, o.OverdueBy)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d issues, %d resolved (%d%%)\n", report.Total, report.Resolved, report.CompletionRate)
	return nil
}
