// =============================================================================
// Webshop Sales Report - SOAP Client
// =============================================================================
//
// Client talks to the hosted webshop API. The API is session based:
//   1. Solution_Connect logs in; the session lives in a cookie
//   2. Order_SetFields restricts which order fields are returned
//   3. Order_GetByDate returns the orders of a date range and status
//
// Every failure is wrapped in types.ErrSourceUnavailable. The client never
// retries; the caller decides what to do with a failed fetch.
//
// =============================================================================

package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// baseFields are always requested from Order_SetFields.
var baseFields = []string{"Id", "Status", "Payment", "Vat", "Total"}

// =============================================================================
// ORDER TYPES
// =============================================================================

// Payment is the payment method of an order.
type Payment struct {
	Id    string `xml:"Id"`
	Title string `xml:"Title"`
}

// Order is one order as returned by Order_GetByDate. Values are kept as
// text; the normalizer parses them.
type Order struct {
	Id            string  `xml:"Id"`
	Status        string  `xml:"Status"`
	Payment       Payment `xml:"Payment"`
	Vat           string  `xml:"Vat"`
	Total         string  `xml:"Total"`
	DateDelivered string  `xml:"DateDelivered"`
	DateCreated   string  `xml:"DateCreated"`
}

// Field returns the date field called name ("DateDelivered" or "DateCreated").
func (o Order) Field(name string) string {
	switch name {
	case "DateCreated":
		return o.DateCreated
	default:
		return o.DateDelivered
	}
}

type getByDateResponse struct {
	Return struct {
		Items []Order `xml:",any"`
	} `xml:"return"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a session-based API client. It is safe for concurrent use.
type Client struct {
	settings   config.APISettings
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	connected bool
}

// NewClient creates a client with its own cookie jar.
func NewClient(settings config.APISettings, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		settings: settings,
		httpClient: &http.Client{
			Timeout: settings.Timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// Connect opens a session with the configured credentials.
func (c *Client) Connect(ctx context.Context) error {
	return c.call(ctx, "Solution_Connect", []Param{
		{Name: "Username", Value: c.settings.Username},
		{Name: "Password", Value: c.settings.Password},
	}, nil)
}

// SetFields restricts the order fields returned by later calls.
func (c *Client) SetFields(ctx context.Context, fields []string) error {
	return c.call(ctx, "Order_SetFields", []Param{
		{Name: "Fields", Value: strings.Join(fields, ", ")},
	}, nil)
}

// GetOrdersByDate returns the orders of r with the given status.
func (c *Client) GetOrdersByDate(ctx context.Context, r types.DateRange, status string) ([]Order, error) {
	var resp getByDateResponse
	err := c.call(ctx, "Order_GetByDate", []Param{
		{Name: "Start", Value: r.Start.Format(types.DateLayout)},
		{Name: "End", Value: r.End.Format(types.DateLayout)},
		{Name: "Status", Value: status},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Return.Items, nil
}

// FetchOrders opens the session on first use and returns the completed
// orders of r.
func (c *Client) FetchOrders(ctx context.Context, r types.DateRange) ([]Order, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
	}

	orders, err := c.GetOrdersByDate(ctx, r, c.settings.OrderStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching orders %s: %v", types.ErrSourceUnavailable, r, err)
	}

	c.logger.Info("Fetched orders",
		zap.String("range", r.String()),
		zap.Int("orders", len(orders)),
	)
	return orders, nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	if err := c.SetFields(ctx, requestedFields(c.settings.DateField)); err != nil {
		return fmt.Errorf("setting order fields: %w", err)
	}
	c.connected = true
	return nil
}

func requestedFields(dateField string) []string {
	fields := append([]string{}, baseFields...)
	if dateField == "" {
		dateField = "DateDelivered"
	}
	return append(fields, dateField)
}

// call posts one operation and decodes its response into out.
func (c *Client) call(ctx context.Context, operation string, params []Param, out interface{}) error {
	body := BuildEnvelope(operation, params, EnvelopeOptions{Namespace: c.settings.Namespace})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", c.settings.Namespace+"#"+operation))

	c.logger.Debug("SOAP call", zap.String("operation", operation), zap.String("endpoint", c.settings.Endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	// Faults arrive with status 500, so decode before looking at the status.
	if err := decodeResponse(data, out); err != nil {
		if fault, ok := err.(*Fault); ok {
			return fmt.Errorf("%s: %w", operation, fault)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: unexpected status %s", operation, resp.Status)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", operation, resp.Status)
	}
	return nil
}
