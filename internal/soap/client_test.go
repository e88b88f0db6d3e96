package soap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

const ordersResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:webshop">
  <SOAP-ENV:Body>
    <ns1:Order_GetByDateResponse>
      <return>
        <item>
          <Id>1001</Id>
          <Status>8</Status>
          <Payment><Id>3</Id><Title>Kreditkortbetaling</Title></Payment>
          <Vat>0.25</Vat>
          <Total>100</Total>
          <DateDelivered>2023-12-01 10:00:00</DateDelivered>
        </item>
        <item>
          <Id>1002</Id>
          <Status>8</Status>
          <Payment><Id>5</Id><Title>Kontant betaling</Title></Payment>
          <Vat>0</Vat>
          <Total>50</Total>
          <DateDelivered>2023-12-01 14:30:00</DateDelivered>
        </item>
      </return>
    </ns1:Order_GetByDateResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const emptyResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body><ns1:Response xmlns:ns1="urn:webshop"><return>true</return></ns1:Response></SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Client</faultcode>
      <faultstring>Invalid login</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// fakeShop records the operations it receives and requires the session
// cookie on everything after Solution_Connect.
type fakeShop struct {
	mu         sync.Mutex
	operations []string
	bodies     map[string]string
	failLogin  bool
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
	operation := action[strings.LastIndex(action, "#")+1:]

	f.mu.Lock()
	f.operations = append(f.operations, operation)
	if f.bodies == nil {
		f.bodies = make(map[string]string)
	}
	f.bodies[operation] = string(body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml")

	if operation == "Solution_Connect" {
		if f.failLogin {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, faultResponse)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		io.WriteString(w, emptyResponse)
		return
	}

	if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, faultResponse)
		return
	}

	switch operation {
	case "Order_SetFields":
		io.WriteString(w, emptyResponse)
	case "Order_GetByDate":
		io.WriteString(w, ordersResponse)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(config.APISettings{
		Endpoint:    url,
		Namespace:   "urn:webshop",
		Username:    "user",
		Password:    "p&ss",
		OrderStatus: "8",
		DateField:   "DateDelivered",
		Timeout:     5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func testRange(t *testing.T) types.DateRange {
	t.Helper()
	r, err := types.ParseDateRange("2023-12-01", "2023-12-31")
	require.NoError(t, err)
	return r
}

func TestClient_FetchOrders(t *testing.T) {
	shop := &fakeShop{}
	server := httptest.NewServer(shop)
	defer server.Close()

	client := newTestClient(t, server.URL)
	orders, err := client.FetchOrders(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Len(t, orders, 2)
	assert.Equal(t, "1001", orders[0].Id)
	assert.Equal(t, "Kreditkortbetaling", orders[0].Payment.Title)
	assert.Equal(t, "0.25", orders[0].Vat)
	assert.Equal(t, "100", orders[0].Total)
	assert.Equal(t, "2023-12-01 10:00:00", orders[0].Field("DateDelivered"))
	assert.Equal(t, "Kontant betaling", orders[1].Payment.Title)

	assert.Equal(t, []string{"Solution_Connect", "Order_SetFields", "Order_GetByDate"}, shop.operations)
	assert.Contains(t, shop.bodies["Solution_Connect"], "<Password>p&amp;ss</Password>")
	assert.Contains(t, shop.bodies["Order_SetFields"], "<Fields>Id, Status, Payment, Vat, Total, DateDelivered</Fields>")
	assert.Contains(t, shop.bodies["Order_GetByDate"], "<Start>2023-12-01</Start>")
	assert.Contains(t, shop.bodies["Order_GetByDate"], "<End>2023-12-31</End>")
	assert.Contains(t, shop.bodies["Order_GetByDate"], "<Status>8</Status>")

	// The session is reused.
	_, err = client.FetchOrders(context.Background(), testRange(t))
	require.NoError(t, err)
	assert.Len(t, shop.operations, 4)
}

func TestClient_LoginFault(t *testing.T) {
	server := httptest.NewServer(&fakeShop{failLogin: true})
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchOrders(context.Background(), testRange(t))

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "Invalid login")
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(&fakeShop{})
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	_, err := client.FetchOrders(context.Background(), testRange(t))

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceUnavailable))
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(&fakeShop{})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL)
	_, err := client.FetchOrders(ctx, testRange(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceUnavailable))
}

func TestClient_StatusWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
