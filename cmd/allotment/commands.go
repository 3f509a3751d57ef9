package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"allotment-service/configs"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
	"allotment-service/internal/scheduler"
	"allotment-service/internal/service"
)

const usage = `usage: allotment <command> [flags]

commands:
  register         -file terms.json (or - for stdin)
  plan             -id <property id>
  ledger           -id <property id>
  charges          -id <property id> [-as-of YYYY-MM-DD]
  pay-installment  -id <property id> -seq <n> -date YYYY-MM-DD
  pay-charge       -id <property id> -fy YYYY-YYYY -date YYYY-MM-DD
  search           [-name fragment] [-scheme name] [-category code]
  dues             [-as-of YYYY-MM-DD]
  remind           [-as-of YYYY-MM-DD]
  summary          [-scheme name] [-as-of YYYY-MM-DD]
  serve            run the reminder scheduler until interrupted
`

var errUsage = errors.New("invalid usage")

type app struct {
	services *service.Service
	config   *configs.Config
	logger   *logrus.Logger
	in       io.Reader
	out      io.Writer
	now      func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "plan":
		return a.plan(ctx, rest)
	case "ledger":
		return a.ledger(ctx, rest)
	case "charges":
		return a.charges(ctx, rest)
	case "pay-installment":
		return a.payInstallment(ctx, rest)
	case "pay-charge":
		return a.payCharge(ctx, rest)
	case "search":
		return a.search(ctx, rest)
	case "dues":
		return a.dues(ctx, rest)
	case "remind":
		return a.remind(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "serve":
		return a.serve(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	file := fs.String("file", "", "registration JSON file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: register needs -file", errUsage)
	}

	var r io.Reader = a.in
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("failed to open registration: %w", err)
		}
		defer f.Close()
		r = f
	}

	var registration models.PropertyRegistration
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&registration); err != nil {
		return fmt.Errorf("failed to decode registration: %w", err)
	}

	property, err := a.services.Allotment.Register(ctx, &registration)
	if err != nil {
		return err
	}
	return a.print(property)
}

func (a *app) plan(ctx context.Context, args []string) error {
	fs := a.flagSet("plan")
	id := fs.String("id", "", "property id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	propertyID, err := parseID(*id)
	if err != nil {
		return err
	}

	view, err := a.services.Allotment.Plan(ctx, propertyID)
	if err != nil {
		return err
	}
	return a.print(view)
}

func (a *app) ledger(ctx context.Context, args []string) error {
	fs := a.flagSet("ledger")
	id := fs.String("id", "", "property id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	propertyID, err := parseID(*id)
	if err != nil {
		return err
	}

	snapshot, err := a.services.Allotment.Ledger(ctx, propertyID)
	if err != nil {
		return err
	}
	return a.print(snapshot)
}

func (a *app) charges(ctx context.Context, args []string) error {
	fs := a.flagSet("charges")
	id := fs.String("id", "", "property id")
	asOf := fs.String("as-of", "", "statement date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	propertyID, err := parseID(*id)
	if err != nil {
		return err
	}
	date, err := a.dateOrToday(*asOf)
	if err != nil {
		return err
	}

	stmt, err := a.services.Allotment.ServiceCharges(ctx, propertyID, date)
	if err != nil {
		return err
	}
	return a.print(stmt)
}

func (a *app) payInstallment(ctx context.Context, args []string) error {
	fs := a.flagSet("pay-installment")
	id := fs.String("id", "", "property id")
	seq := fs.Int("seq", 0, "installment sequence number, from 1")
	paid := fs.String("date", "", "payment date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	propertyID, err := parseID(*id)
	if err != nil {
		return err
	}
	date, err := a.dateOrToday(*paid)
	if err != nil {
		return err
	}

	installment, err := a.services.Allotment.RecordInstallmentPayment(ctx, propertyID, *seq, date)
	if err != nil {
		return err
	}
	return a.print(installment)
}

func (a *app) payCharge(ctx context.Context, args []string) error {
	fs := a.flagSet("pay-charge")
	id := fs.String("id", "", "property id")
	label := fs.String("fy", "", "financial year, e.g. 2024-2025")
	paid := fs.String("date", "", "payment date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	propertyID, err := parseID(*id)
	if err != nil {
		return err
	}
	fy, err := models.ParseFinancialYear(*label)
	if err != nil {
		return err
	}
	date, err := a.dateOrToday(*paid)
	if err != nil {
		return err
	}

	obligation, err := a.services.Allotment.RecordServiceChargePayment(ctx, propertyID, fy, date)
	if err != nil {
		return err
	}
	return a.print(obligation)
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := a.flagSet("search")
	var criteria repository.SearchCriteria
	fs.StringVar(&criteria.AllotteeName, "name", "", "allottee name fragment")
	fs.StringVar(&criteria.SchemeName, "scheme", "", "scheme name")
	fs.StringVar(&criteria.FloorCategory, "category", "", "floor category code")
	fs.IntVar(&criteria.Limit, "limit", 0, "maximum results, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	properties, err := a.services.Allotment.Search(ctx, criteria)
	if err != nil {
		return err
	}
	return a.print(properties)
}

func (a *app) dues(ctx context.Context, args []string) error {
	fs := a.flagSet("dues")
	asOf := fs.String("as-of", "", "evaluation date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := a.dateOrToday(*asOf)
	if err != nil {
		return err
	}

	notices, err := a.services.Allotment.Delinquencies(ctx, date)
	if err != nil {
		return err
	}
	return a.print(notices)
}

func (a *app) remind(ctx context.Context, args []string) error {
	fs := a.flagSet("remind")
	asOf := fs.String("as-of", "", "evaluation date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := a.dateOrToday(*asOf)
	if err != nil {
		return err
	}

	result, err := a.services.Reminder.SendDueReminders(ctx, date)
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.flagSet("summary")
	scheme := fs.String("scheme", "", "scheme name, empty for all properties")
	asOf := fs.String("as-of", "", "report date, defaults to today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := a.dateOrToday(*asOf)
	if err != nil {
		return err
	}

	report, err := a.services.Analytics.SchemeReport(ctx, *scheme, date)
	if err != nil {
		return err
	}
	return a.print(report)
}

// serve runs the reminder scheduler until ctx is cancelled
func (a *app) serve(ctx context.Context, args []string) error {
	fs := a.flagSet("serve")
	schedule := fs.String("schedule", a.config.Reminder.Schedule, "cron schedule of the reminder sweep")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sched, err := scheduler.NewScheduler(a.services.Reminder, a.logger, *schedule)
	if err != nil {
		return err
	}
	sched.Start()

	<-ctx.Done()
	a.logger.Info("Shutting down reminder scheduler...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Reminder scheduler gracefully stopped")
	return nil
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) dateOrToday(value string) (time.Time, error) {
	if value == "" {
		now := time.Now
		if a.now != nil {
			now = a.now
		}
		return models.CalendarDate(now()), nil
	}
	return models.ParseDate(value)
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%w: -id is required", errUsage)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid property id %q", errUsage, value)
	}
	return id, nil
}
