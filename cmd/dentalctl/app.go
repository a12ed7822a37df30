package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"dentalflow/internal/client"
	"dentalflow/internal/lifecycle"
	"dentalflow/internal/model"
	"dentalflow/internal/push"
	"dentalflow/internal/repository"
	"dentalflow/internal/store"
)

type app struct {
	accounts *repository.AuthRepository
	auth     *lifecycle.AuthController
	appts    *lifecycle.AppointmentController
	out      io.Writer
	amqpURL  string
}

func newApp(remote *client.Remote, out io.Writer) *app {
	accounts := repository.NewAuthRepository(remote)
	return &app{
		accounts: accounts,
		auth:     lifecycle.NewAuthController(accounts),
		appts: lifecycle.NewAppointmentController(
			repository.NewAppointmentRepository(remote),
			repository.NewMailRepository(remote),
		),
		out: out,
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password, at least 6 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]string{"name": *name, "email": *email, "password": *password}); err != nil {
		return err
	}

	st := a.auth.Register(ctx, *name, *email, *password)
	if st.Phase == lifecycle.PhaseError {
		return errors.New(st.Message)
	}
	fmt.Fprintf(a.out, "Registered %s.\n", *email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]string{"email": *email, "password": *password}); err != nil {
		return err
	}

	st := a.auth.Login(ctx, *email, *password)
	if st.Phase == lifecycle.PhaseError {
		return errors.New(st.Message)
	}
	fmt.Fprintf(a.out, "Signed in. Dentist id %s\n", st.DentistID)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	err := a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	if err != nil && !client.IsSignedOut(err) && !errors.Is(err, client.ErrUnauthenticated) {
		return fmt.Errorf("local session cleared, server revocation failed: %w", err)
	}
	return nil
}

func (a *app) whoami() error {
	p, ok := a.accounts.CurrentPrincipal()
	if !ok {
		return client.ErrNotSignedIn
	}
	fmt.Fprintf(a.out, "%s (%s)\n", p.Email, p.ID)
	return nil
}

func (a *app) principal() (model.Principal, error) {
	p, ok := a.accounts.CurrentPrincipal()
	if !ok {
		return model.Principal{}, fmt.Errorf("%w, run dentalctl login", client.ErrNotSignedIn)
	}
	return p, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	query := fs.String("q", "", "filter by patient name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := a.principal()
	if err != nil {
		return err
	}

	_ = a.appts.LoadDentistName(ctx, p.ID)
	if err := a.appts.LoadAppointments(ctx, p.ID); err != nil {
		return err
	}
	st := a.appts.State()
	shown := lifecycle.Present(st.Appointments, *query)

	fmt.Fprintf(a.out, "%s: %s\n", st.DentistName, countLine(len(st.Appointments), len(shown)))
	if len(shown) == 0 {
		return nil
	}
	printAppointments(a.out, shown)
	return nil
}

func countLine(total, shown int) string {
	switch {
	case total == 0:
		return "no appointments found"
	case shown == 1:
		return "1 appointment scheduled"
	}
	return fmt.Sprintf("%d appointments scheduled", shown)
}

func printAppointments(out io.Writer, list []model.Appointment) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tPATIENT\tPROCEDURE\tSTATUS\tEMAIL")
	for _, ap := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ap.ID, ap.Date, ap.Time, ap.PatientName, ap.Procedure, ap.Status, ap.EmailStatus)
	}
	_ = tw.Flush()
}

type formFlags struct {
	fs   *flag.FlagSet
	form lifecycle.Form
}

func newFormFlags(name string) *formFlags {
	ff := &formFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	ff.fs.StringVar(&ff.form.PatientName, "patient", "", "patient name")
	ff.fs.StringVar(&ff.form.PatientPhone, "phone", "", "patient phone, at least 10 digits")
	ff.fs.StringVar(&ff.form.PatientEmail, "email", "", "patient email (optional)")
	ff.fs.StringVar(&ff.form.Date, "date", "", "date, dd/mm/yyyy")
	ff.fs.StringVar(&ff.form.Time, "time", "", "time, hh:mm")
	ff.fs.StringVar(&ff.form.Procedure, "procedure", "", "procedure")
	ff.fs.StringVar(&ff.form.Notes, "notes", "", "notes")
	return ff
}

func invalid(f lifecycle.Form) error {
	if fields := lifecycle.ValidateForm(f); len(fields) > 0 {
		return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	ff := newFormFlags("create")
	if err := ff.fs.Parse(args); err != nil {
		return err
	}
	if err := invalid(ff.form); err != nil {
		return err
	}
	p, err := a.principal()
	if err != nil {
		return err
	}

	_ = a.appts.LoadDentistName(ctx, p.ID)
	st := a.appts.CreateAppointment(ctx, ff.form.Appointment(p.ID, a.appts.State().DentistName))
	a.appts.WaitOutbound()
	defer a.appts.ResetCreate()

	if st.Phase == lifecycle.PhaseError {
		return errors.New(st.Message)
	}
	fmt.Fprintf(a.out, "Appointment scheduled: %s\n", st.Appointment.ID)
	switch mt := a.appts.State().Mail[st.Appointment.ID]; mt.State {
	case lifecycle.TaskQueued:
		fmt.Fprintf(a.out, "Confirmation email queued for %s\n", st.Appointment.PatientEmail)
	case lifecycle.TaskFailed:
		fmt.Fprintf(a.out, "Confirmation email not queued: %s\n", mt.Message)
	}
	return nil
}

func (a *app) find(ctx context.Context, dentistID, id string) (model.Appointment, error) {
	if err := a.appts.LoadAppointments(ctx, dentistID); err != nil {
		return model.Appointment{}, err
	}
	for _, ap := range a.appts.State().Appointments {
		if ap.ID == id {
			return ap, nil
		}
	}
	return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, store.ErrNotFound)
}

func (a *app) edit(ctx context.Context, args []string) error {
	ff := newFormFlags("edit")
	id := ff.fs.String("id", "", "appointment id")
	status := ff.fs.String("status", "", "Scheduled, Confirmed, Completed or Cancelled")
	if err := ff.fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	p, err := a.principal()
	if err != nil {
		return err
	}

	cur, err := a.find(ctx, p.ID, *id)
	if err != nil {
		return err
	}
	form := lifecycle.FormFrom(cur)
	ff.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "patient":
			form.PatientName = ff.form.PatientName
		case "phone":
			form.PatientPhone = ff.form.PatientPhone
		case "email":
			form.PatientEmail = ff.form.PatientEmail
		case "date":
			form.Date = ff.form.Date
		case "time":
			form.Time = ff.form.Time
		case "procedure":
			form.Procedure = ff.form.Procedure
		case "notes":
			form.Notes = ff.form.Notes
		}
	})
	if err := invalid(form); err != nil {
		return err
	}
	next := form.Apply(cur)
	if *status != "" {
		next.Status = *status
	}

	err = a.appts.UpdateAppointment(ctx, next)
	if errors.Is(err, store.ErrConflict) {
		return errors.New("appointment changed on the server, run list and try again")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Appointment %s updated.\n", *id)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "appointment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	p, err := a.principal()
	if err != nil {
		return err
	}
	if err := a.appts.DeleteAppointment(ctx, *id, p.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Appointment %s deleted.\n", *id)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	topic := fs.String("topic", push.DefaultTopic, "push topic")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.amqpURL == "" {
		return errors.New("watch needs a broker, set -amqp or AMQP_URL")
	}

	pc, err := push.NewClient(a.amqpURL)
	if err != nil {
		return err
	}
	defer pc.Close()

	fmt.Fprintf(a.out, "Watching topic %q, Ctrl-C to stop.\n", *topic)
	err = push.Subscribe(ctx, pc.Channel(), *topic, func(m push.Message) {
		fmt.Fprintf(a.out, "[%s] %s\n  %s\n", m.SentAt.Local().Format("15:04"), m.Title, m.Body)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func required(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"name", "email", "password"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}
