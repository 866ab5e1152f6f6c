package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const AdminServiceName = "earnedshine.admin.v1.AdminService"

type AdminServiceServer interface {
	GetStats(ctx context.Context, req *Empty) (*GetStatsResponse, error)
	ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error)
	UpdateBooking(ctx context.Context, req *UpdateBookingRequest) (*BookingResponse, error)
	CancelBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error)
	SetBookingHidden(ctx context.Context, req *SetBookingHiddenRequest) (*BookingResponse, error)
	CleanupBookings(ctx context.Context, req *CleanupBookingsRequest) (*CleanupBookingsResponse, error)
	ConfirmPayment(ctx context.Context, req *BookingRequest) (*BookingResponse, error)
	BlockDay(ctx context.Context, req *DayRequest) (*Empty, error)
	UnblockDay(ctx context.Context, req *DayRequest) (*Empty, error)
	BlockSlot(ctx context.Context, req *SlotRequest) (*Empty, error)
	UnblockSlot(ctx context.Context, req *SlotRequest) (*Empty, error)
	GetDayAvailability(ctx context.Context, req *DayRequest) (*GetDayAvailabilityResponse, error)
}

func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetStats", AdminServiceServer.GetStats),
		unaryMethod("ListBookings", AdminServiceServer.ListBookings),
		unaryMethod("UpdateBooking", AdminServiceServer.UpdateBooking),
		unaryMethod("CancelBooking", AdminServiceServer.CancelBooking),
		unaryMethod("SetBookingHidden", AdminServiceServer.SetBookingHidden),
		unaryMethod("CleanupBookings", AdminServiceServer.CleanupBookings),
		unaryMethod("ConfirmPayment", AdminServiceServer.ConfirmPayment),
		unaryMethod("BlockDay", AdminServiceServer.BlockDay),
		unaryMethod("UnblockDay", AdminServiceServer.UnblockDay),
		unaryMethod("BlockSlot", AdminServiceServer.BlockSlot),
		unaryMethod("UnblockSlot", AdminServiceServer.UnblockSlot),
		unaryMethod("GetDayAvailability", AdminServiceServer.GetDayAvailability),
	},
	Streams: []grpc.StreamDesc{},
}

func unaryMethod[Req, Resp any](name string, call func(AdminServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + AdminServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AdminClient calls AdminService with the JSON codec.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONContentSubtype)}, opts...)
	if err := cc.Invoke(ctx, "/"+AdminServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) GetStats(ctx context.Context, opts ...grpc.CallOption) (*GetStatsResponse, error) {
	return invoke[GetStatsResponse](ctx, c.cc, "GetStats", &Empty{}, opts...)
}

func (c *AdminClient) ListBookings(ctx context.Context, req *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListBookings", req, opts...)
}

func (c *AdminClient) UpdateBooking(ctx context.Context, req *UpdateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "UpdateBooking", req, opts...)
}

func (c *AdminClient) CancelBooking(ctx context.Context, req *BookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "CancelBooking", req, opts...)
}

func (c *AdminClient) SetBookingHidden(ctx context.Context, req *SetBookingHiddenRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "SetBookingHidden", req, opts...)
}

func (c *AdminClient) CleanupBookings(ctx context.Context, req *CleanupBookingsRequest, opts ...grpc.CallOption) (*CleanupBookingsResponse, error) {
	return invoke[CleanupBookingsResponse](ctx, c.cc, "CleanupBookings", req, opts...)
}

func (c *AdminClient) ConfirmPayment(ctx context.Context, req *BookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "ConfirmPayment", req, opts...)
}

func (c *AdminClient) BlockDay(ctx context.Context, req *DayRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "BlockDay", req, opts...)
}

func (c *AdminClient) UnblockDay(ctx context.Context, req *DayRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UnblockDay", req, opts...)
}

func (c *AdminClient) BlockSlot(ctx context.Context, req *SlotRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "BlockSlot", req, opts...)
}

func (c *AdminClient) UnblockSlot(ctx context.Context, req *SlotRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UnblockSlot", req, opts...)
}

func (c *AdminClient) GetDayAvailability(ctx context.Context, req *DayRequest, opts ...grpc.CallOption) (*GetDayAvailabilityResponse, error) {
	return invoke[GetDayAvailabilityResponse](ctx, c.cc, "GetDayAvailability", req, opts...)
}
