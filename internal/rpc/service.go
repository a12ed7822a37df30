package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "dentalflow.v1.DentalFlow"

const (
	MethodSignUp            = "/" + ServiceName + "/SignUp"
	MethodSignIn            = "/" + ServiceName + "/SignIn"
	MethodRefresh           = "/" + ServiceName + "/Refresh"
	MethodSignOut           = "/" + ServiceName + "/SignOut"
	MethodPutDentist        = "/" + ServiceName + "/PutDentist"
	MethodGetDentist        = "/" + ServiceName + "/GetDentist"
	MethodCreateAppointment = "/" + ServiceName + "/CreateAppointment"
	MethodListAppointments  = "/" + ServiceName + "/ListAppointments"
	MethodUpdateAppointment = "/" + ServiceName + "/UpdateAppointment"
	MethodDeleteAppointment = "/" + ServiceName + "/DeleteAppointment"
	MethodEnqueueMail       = "/" + ServiceName + "/EnqueueMail"
	MethodGetMail           = "/" + ServiceName + "/GetMail"
)

type DentalFlowServer interface {
	SignUp(context.Context, *SignUpRequest) (*SessionResponse, error)
	SignIn(context.Context, *SignInRequest) (*SessionResponse, error)
	Refresh(context.Context, *RefreshRequest) (*SessionResponse, error)
	SignOut(context.Context, *Empty) (*Empty, error)
	PutDentist(context.Context, *PutDentistRequest) (*Empty, error)
	GetDentist(context.Context, *GetDentistRequest) (*DentistResponse, error)
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*AppointmentResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*AppointmentResponse, error)
	DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*Empty, error)
	EnqueueMail(context.Context, *EnqueueMailRequest) (*MailResponse, error)
	GetMail(context.Context, *GetMailRequest) (*MailResponse, error)
}

func unary[Req, Resp any](name string, call func(DentalFlowServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DentalFlowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DentalFlowServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is registered on the gRPC server and walked by the HTTP gateway.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DentalFlowServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SignUp", DentalFlowServer.SignUp),
		unary("SignIn", DentalFlowServer.SignIn),
		unary("Refresh", DentalFlowServer.Refresh),
		unary("SignOut", DentalFlowServer.SignOut),
		unary("PutDentist", DentalFlowServer.PutDentist),
		unary("GetDentist", DentalFlowServer.GetDentist),
		unary("CreateAppointment", DentalFlowServer.CreateAppointment),
		unary("ListAppointments", DentalFlowServer.ListAppointments),
		unary("UpdateAppointment", DentalFlowServer.UpdateAppointment),
		unary("DeleteAppointment", DentalFlowServer.DeleteAppointment),
		unary("EnqueueMail", DentalFlowServer.EnqueueMail),
		unary("GetMail", DentalFlowServer.GetMail),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dentalflow/v1/dentalflow",
}

func RegisterDentalFlowServer(s grpc.ServiceRegistrar, srv DentalFlowServer) {
	s.RegisterService(&ServiceDesc, srv)
}
