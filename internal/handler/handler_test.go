package handler_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"dentalflow/internal/auth"
	"dentalflow/internal/handler"
	"dentalflow/internal/middleware"
	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
	"dentalflow/internal/store"
)

const secret = "handler-test-secret"

func setup(t *testing.T) *rpc.Client {
	t.Helper()
	mem := store.NewMemory()
	h := handler.New(mem, auth.NewProvider(mem, secret))

	rl := middleware.NewRateLimiter(1000, 1000)
	t.Cleanup(rl.Close)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.Observe(nil),
		middleware.RateLimit(rl),
		middleware.Auth(secret),
	))
	rpc.RegisterDentalFlowServer(srv, h)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return rpc.NewClient(conn)
}

func signUp(t *testing.T, c *rpc.Client, email string) (context.Context, *rpc.SessionResponse) {
	t.Helper()
	s, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: email, Password: "testpass123"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+s.AccessToken)
	return ctx, s
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := status.Code(err); got != code {
		t.Fatalf("want %v, got %v (%v)", code, got, err)
	}
}

func ana(dentistID string) rpc.AppointmentInput {
	return rpc.AppointmentInput{
		PatientName:  "Ana",
		PatientPhone: "11987654321",
		PatientEmail: "ana@x.com",
		EmailStatus:  model.EmailPending,
		DentistID:    dentistID,
		DentistName:  "Dr. Bia",
		Date:         "10/05/2025",
		Time:         "09:00",
		Procedure:    "Cleaning",
		Status:       model.StatusScheduled,
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	c := setup(t)
	_, s := signUp(t, c, "bia@x.com")
	if s.Principal.ID == "" || s.AccessToken == "" || s.RefreshToken == "" {
		t.Fatalf("incomplete session: %+v", s)
	}

	tests := []struct {
		name string
		req  *rpc.SignInRequest
		code codes.Code
	}{
		{"ok", &rpc.SignInRequest{Email: "bia@x.com", Password: "testpass123"}, codes.OK},
		{"wrong password", &rpc.SignInRequest{Email: "bia@x.com", Password: "nope"}, codes.Unauthenticated},
		{"unknown email", &rpc.SignInRequest{Email: "ghost@x.com", Password: "testpass123"}, codes.Unauthenticated},
		{"missing password", &rpc.SignInRequest{Email: "bia@x.com"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SignIn(context.Background(), tt.req)
			wantCode(t, err, tt.code)
		})
	}

	_, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: "bia@x.com", Password: "testpass123"})
	wantCode(t, err, codes.AlreadyExists)
}

func TestValidationDetails(t *testing.T) {
	c := setup(t)
	_, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: "not-an-email", Password: "short"})
	wantCode(t, err, codes.InvalidArgument)

	fields := map[string]bool{}
	for _, d := range status.Convert(err).Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields[v.GetField()] = true
			}
		}
	}
	if !fields["email"] || !fields["password"] {
		t.Fatalf("expected email and password violations, got %v", fields)
	}
}

func TestSignUpPasswordLength(t *testing.T) {
	c := setup(t)
	_, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: "five@x.com", Password: "12345"})
	wantCode(t, err, codes.InvalidArgument)

	s, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: "six@x.com", Password: "123456"})
	if err != nil {
		t.Fatalf("six character password rejected: %v", err)
	}
	if s.Principal.ID == "" {
		t.Fatalf("missing principal: %+v", s)
	}
}

func TestUnauthenticated(t *testing.T) {
	c := setup(t)
	_, err := c.ListAppointments(context.Background(), &rpc.ListAppointmentsRequest{DentistID: "D1"})
	wantCode(t, err, codes.Unauthenticated)

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer junk")
	_, err = c.ListAppointments(bad, &rpc.ListAppointmentsRequest{DentistID: "D1"})
	wantCode(t, err, codes.Unauthenticated)
}

func TestAppointmentLifecycle(t *testing.T) {
	c := setup(t)
	ctx, s := signUp(t, c, "bia@x.com")
	dentist := s.Principal.ID

	created, err := c.CreateAppointment(ctx, &rpc.CreateAppointmentRequest{Appointment: ana(dentist)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := created.Appointment
	if a.ID == "" || a.Version != 1 || a.CreatedBy != dentist {
		t.Fatalf("unexpected created appointment: %+v", a)
	}
	if a.EmailStatus != model.EmailPending {
		t.Fatalf("email status: want PENDING, got %s", a.EmailStatus)
	}

	list, err := c.ListAppointments(ctx, &rpc.ListAppointmentsRequest{DentistID: dentist})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Appointments) != 1 || list.Appointments[0].ID != a.ID {
		t.Fatalf("list: %+v", list.Appointments)
	}

	edit := rpc.InputFrom(a)
	edit.Status = model.StatusConfirmed
	edit.EmailStatus = model.EmailSent
	updated, err := c.UpdateAppointment(ctx, &rpc.UpdateAppointmentRequest{Appointment: edit})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Appointment.Version != 2 || updated.Appointment.Status != model.StatusConfirmed {
		t.Fatalf("update result: %+v", updated.Appointment)
	}
	// server owns email_status
	if updated.Appointment.EmailStatus != model.EmailPending {
		t.Fatalf("client overwrote email status: %s", updated.Appointment.EmailStatus)
	}

	// edit.Version is now stale
	_, err = c.UpdateAppointment(ctx, &rpc.UpdateAppointmentRequest{Appointment: edit})
	wantCode(t, err, codes.Aborted)

	if _, err := c.DeleteAppointment(ctx, &rpc.DeleteAppointmentRequest{ID: a.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err = c.ListAppointments(ctx, &rpc.ListAppointmentsRequest{DentistID: dentist})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, got := range list.Appointments {
		if got.ID == a.ID {
			t.Fatal("deleted appointment still listed")
		}
	}
	_, err = c.DeleteAppointment(ctx, &rpc.DeleteAppointmentRequest{ID: a.ID})
	wantCode(t, err, codes.NotFound)
}

func TestAppointmentOwnership(t *testing.T) {
	c := setup(t)
	biaCtx, bia := signUp(t, c, "bia@x.com")
	caioCtx, caio := signUp(t, c, "caio@x.com")

	created, err := c.CreateAppointment(biaCtx, &rpc.CreateAppointmentRequest{Appointment: ana("")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Appointment.DentistID != bia.Principal.ID {
		t.Fatalf("dentist id defaulted to %q", created.Appointment.DentistID)
	}

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"list another dentist", func() error {
			_, err := c.ListAppointments(caioCtx, &rpc.ListAppointmentsRequest{DentistID: bia.Principal.ID})
			return err
		}, codes.PermissionDenied},
		{"book for another dentist", func() error {
			_, err := c.CreateAppointment(caioCtx, &rpc.CreateAppointmentRequest{Appointment: ana(bia.Principal.ID)})
			return err
		}, codes.PermissionDenied},
		{"update another's appointment", func() error {
			in := rpc.InputFrom(created.Appointment)
			in.DentistID = caio.Principal.ID
			_, err := c.UpdateAppointment(caioCtx, &rpc.UpdateAppointmentRequest{Appointment: in})
			return err
		}, codes.NotFound},
		{"delete another's appointment", func() error {
			_, err := c.DeleteAppointment(caioCtx, &rpc.DeleteAppointmentRequest{ID: created.Appointment.ID})
			return err
		}, codes.NotFound},
		{"write another profile", func() error {
			_, err := c.PutDentist(caioCtx, &rpc.PutDentistRequest{ID: bia.Principal.ID, Name: "Dr. Fake"})
			return err
		}, codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantCode(t, tt.call(), tt.code)
		})
	}
}

func TestDentistProfile(t *testing.T) {
	c := setup(t)
	ctx, s := signUp(t, c, "bia@x.com")

	_, err := c.GetDentist(ctx, &rpc.GetDentistRequest{ID: s.Principal.ID})
	wantCode(t, err, codes.NotFound)

	if _, err := c.PutDentist(ctx, &rpc.PutDentistRequest{ID: s.Principal.ID, Name: "Dr. Bia"}); err != nil {
		t.Fatalf("put dentist: %v", err)
	}
	d, err := c.GetDentist(ctx, &rpc.GetDentistRequest{ID: s.Principal.ID})
	if err != nil {
		t.Fatalf("get dentist: %v", err)
	}
	if d.Dentist.Name != "Dr. Bia" {
		t.Fatalf("name: %q", d.Dentist.Name)
	}

	_, err = c.PutDentist(ctx, &rpc.PutDentistRequest{ID: s.Principal.ID, Name: "Dr. Renamed"})
	wantCode(t, err, codes.AlreadyExists)
	d, err = c.GetDentist(ctx, &rpc.GetDentistRequest{ID: s.Principal.ID})
	if err != nil || d.Dentist.Name != "Dr. Bia" {
		t.Fatalf("profile changed: %+v, %v", d, err)
	}
}

func TestMailEnqueue(t *testing.T) {
	c := setup(t)
	ctx, _ := signUp(t, c, "bia@x.com")

	m, err := c.EnqueueMail(ctx, &rpc.EnqueueMailRequest{To: "ana@x.com", Subject: "Appointment confirmed", Text: "see you"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if m.Mail.ID == "" || m.Mail.Delivery.State != model.DeliveryPending {
		t.Fatalf("unexpected envelope: %+v", m.Mail)
	}
	got, err := c.GetMail(ctx, &rpc.GetMailRequest{ID: m.Mail.ID})
	if err != nil {
		t.Fatalf("get mail: %v", err)
	}
	if got.Mail.To != "ana@x.com" {
		t.Fatalf("recipient: %q", got.Mail.To)
	}

	other, _ := signUp(t, c, "caio@x.com")
	_, err = c.GetMail(other, &rpc.GetMailRequest{ID: m.Mail.ID})
	wantCode(t, err, codes.NotFound)

	_, err = c.EnqueueMail(ctx, &rpc.EnqueueMailRequest{To: "", Subject: "x"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestRefreshAndSignOut(t *testing.T) {
	c := setup(t)
	ctx, s := signUp(t, c, "bia@x.com")

	next, err := c.Refresh(context.Background(), &rpc.RefreshRequest{RefreshToken: s.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == s.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	if _, err := c.SignOut(ctx, &rpc.Empty{}); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	_, err = c.Refresh(context.Background(), &rpc.RefreshRequest{RefreshToken: next.RefreshToken})
	wantCode(t, err, codes.Unauthenticated)
}
