package client

import (
	"context"
	"net/url"
)

// FleetClient wraps the FleetLink REST routes.
type FleetClient struct {
	http *HttpClient
}

func NewFleetClient(baseURL string) *FleetClient {
	return &FleetClient{http: NewHttpClient(baseURL)}
}

func (c *FleetClient) HTTP() *HttpClient {
	return c.http
}

func (c *FleetClient) RegisterVehicle(ctx context.Context, body any) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/vehicles", body)
}

func (c *FleetClient) GetVehicle(ctx context.Context, id string) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/vehicles/id/"+url.PathEscape(id))
}

func (c *FleetClient) ListVehicles(ctx context.Context, query url.Values) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/vehicles?"+query.Encode())
}

func (c *FleetClient) SearchVehicles(ctx context.Context, city, startDate, endDate string) (*Response, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)
	return c.http.GET(ctx, "/api/v1/vehicles/search?"+q.Encode())
}

func (c *FleetClient) VehicleBulk(ctx context.Context, body any) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/vehicles/bulk", body)
}

func (c *FleetClient) CreateBooking(ctx context.Context, body any) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/bookings", body)
}

func (c *FleetClient) GetBooking(ctx context.Context, id string) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *FleetClient) ListBookings(ctx context.Context, query url.Values) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/bookings?"+query.Encode())
}

func (c *FleetClient) UpdateBooking(ctx context.Context, id string, body any) (*Response, error) {
	return c.http.PATCH(ctx, "/api/v1/bookings/id/"+url.PathEscape(id), body)
}

func (c *FleetClient) DeleteBooking(ctx context.Context, id string) (*Response, error) {
	return c.http.DELETE(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *FleetClient) Quote(ctx context.Context, body any) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/deliveries/quote", body)
}

func (c *FleetClient) CreateDelivery(ctx context.Context, body any) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/deliveries", body)
}

func (c *FleetClient) CancelDelivery(ctx context.Context, id string) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/deliveries/id/"+url.PathEscape(id)+"/cancel", nil)
}
