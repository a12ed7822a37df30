package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is the typed stub for DentalFlowServer.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodSignUp, in, opts)
}

func (c *Client) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodSignIn, in, opts)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodRefresh, in, opts)
}

func (c *Client) SignOut(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodSignOut, in, opts)
}

func (c *Client) PutDentist(ctx context.Context, in *PutDentistRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodPutDentist, in, opts)
}

func (c *Client) GetDentist(ctx context.Context, in *GetDentistRequest, opts ...grpc.CallOption) (*DentistResponse, error) {
	return invoke[DentistResponse](ctx, c.cc, MethodGetDentist, in, opts)
}

func (c *Client) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c.cc, MethodCreateAppointment, in, opts)
}

func (c *Client) ListAppointments(ctx context.Context, in *ListAppointmentsRequest, opts ...grpc.CallOption) (*ListAppointmentsResponse, error) {
	return invoke[ListAppointmentsResponse](ctx, c.cc, MethodListAppointments, in, opts)
}

func (c *Client) UpdateAppointment(ctx context.Context, in *UpdateAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c.cc, MethodUpdateAppointment, in, opts)
}

func (c *Client) DeleteAppointment(ctx context.Context, in *DeleteAppointmentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodDeleteAppointment, in, opts)
}

func (c *Client) EnqueueMail(ctx context.Context, in *EnqueueMailRequest, opts ...grpc.CallOption) (*MailResponse, error) {
	return invoke[MailResponse](ctx, c.cc, MethodEnqueueMail, in, opts)
}

func (c *Client) GetMail(ctx context.Context, in *GetMailRequest, opts ...grpc.CallOption) (*MailResponse, error) {
	return invoke[MailResponse](ctx, c.cc, MethodGetMail, in, opts)
}
