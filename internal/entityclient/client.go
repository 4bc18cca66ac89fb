// Package entityclient implements the customer and product lookups as HTTP
// clients of the external entity service.
package entityclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lubart/discount-service/internal/domain/customer"
	"github.com/lubart/discount-service/internal/domain/lookup"
	"github.com/lubart/discount-service/internal/domain/product"
	"github.com/lubart/discount-service/internal/domain/value"
)

// maxBodySize bounds the response body read from the entity service.
const maxBodySize = 1 << 20

const defaultTimeout = 5 * time.Second

// Options configures the HTTP client shared by the lookups.
type Options struct {
	// HTTPClient overrides the default instrumented client. When set, the
	// remaining options are ignored.
	HTTPClient *http.Client

	// TracerProvider and MeterProvider instrument the outgoing transport.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Timeout bounds a single lookup call. Defaults to 5s.
	Timeout time.Duration
}

func newHTTPClient(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}

	var transportOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
	}
}

var _ customer.Lookup = (*CustomerClient)(nil)

// CustomerClient resolves customers via GET {base}/customer/{id}.
type CustomerClient struct {
	base string
	http *http.Client
}

// NewCustomerClient creates a CustomerClient for the given base URL.
func NewCustomerClient(baseURL string, opts Options) *CustomerClient {
	return &CustomerClient{
		base: strings.TrimRight(baseURL, "/"),
		http: newHTTPClient(opts),
	}
}

// ByID fetches the customer. Any failure is reported as
// *lookup.UnavailableError, carrying the upstream error code and message
// when the service responded with its error envelope.
func (c *CustomerClient) ByID(ctx context.Context, id value.NumericID) (*customer.Customer, error) {
	strID := strconv.Itoa(id.Int())
	body, err := fetch(ctx, c.http, c.base+"/customer/"+strID, "customer", strID)
	if err != nil {
		return nil, err
	}

	cust, err := decodeCustomer(body)
	if err != nil {
		return nil, &lookup.UnavailableError{
			Entity:  "customer",
			ID:      strID,
			Code:    http.StatusInternalServerError,
			Message: "malformed customer payload",
		}
	}
	return cust, nil
}

var _ product.Lookup = (*ProductClient)(nil)

// ProductClient resolves products via GET {base}/product/{id}.
type ProductClient struct {
	base string
	http *http.Client
}

// NewProductClient creates a ProductClient for the given base URL.
func NewProductClient(baseURL string, opts Options) *ProductClient {
	return &ProductClient{
		base: strings.TrimRight(baseURL, "/"),
		http: newHTTPClient(opts),
	}
}

// ByID fetches the product. Failure semantics match CustomerClient.ByID.
func (c *ProductClient) ByID(ctx context.Context, id string) (*product.Product, error) {
	body, err := fetch(ctx, c.http, c.base+"/product/"+id, "product", id)
	if err != nil {
		return nil, err
	}

	p, err := decodeProduct(body)
	if err != nil {
		return nil, &lookup.UnavailableError{
			Entity:  "product",
			ID:      id,
			Code:    http.StatusInternalServerError,
			Message: "malformed product payload",
		}
	}
	return p, nil
}

// fetch performs the GET and normalizes every failure into
// *lookup.UnavailableError.
func fetch(ctx context.Context, client *http.Client, url, entity, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &lookup.UnavailableError{
			Entity:  entity,
			ID:      id,
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &lookup.UnavailableError{
			Entity:  entity,
			ID:      id,
			Code:    http.StatusInternalServerError,
			Message: entity + " service is not available",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &lookup.UnavailableError{
			Entity:  entity,
			ID:      id,
			Code:    http.StatusInternalServerError,
			Message: entity + " service response could not be read",
		}
	}

	if resp.StatusCode != http.StatusOK {
		code, message := decodeErrorEnvelope(body)
		if message == "" {
			code, message = resp.StatusCode, resp.Status
		}
		return nil, &lookup.UnavailableError{
			Entity:  entity,
			ID:      id,
			Code:    code,
			Message: message,
		}
	}

	return body, nil
}

// decodeErrorEnvelope extracts code and message from the upstream
// {"error":{"code":N,"message":...}} payload. Both are zero-valued when the
// body does not match that shape.
func decodeErrorEnvelope(body []byte) (code int, message string) {
	d := jx.DecodeBytes(body)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "code":
				n, err := d.Int()
				if err != nil {
					return err
				}
				code = n
			case "message":
				s, err := d.Str()
				if err != nil {
					return err
				}
				message = s
			default:
				return d.Skip()
			}
			return nil
		})
	})
	return code, message
}

func decodeCustomer(body []byte) (*customer.Customer, error) {
	var c customer.Customer
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			n, err := decodeInt(d)
			if err != nil {
				return err
			}
			id, err := value.NewNumericID(n)
			if err != nil {
				return err
			}
			c.ID = id
			return nil
		case "name":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Name = s
			return nil
		case "since":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Since = s
			return nil
		case "revenue":
			v, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			c.Revenue = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeProduct(body []byte) (*product.Product, error) {
	var p product.Product
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.ID = s
			return nil
		case "description":
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.Description = s
			return nil
		case "category":
			n, err := decodeInt(d)
			if err != nil {
				return err
			}
			category, err := value.NewNumericID(n)
			if err != nil {
				return err
			}
			p.Category = category
			return nil
		case "price":
			v, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			p.Price = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &p, nil
}

// decodeInt reads a whole number that the upstream may encode as a JSON
// number or a numeric string.
func decodeInt(d *jx.Decoder) (int, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(s)
	}
	return d.Int()
}

// decodeDecimal reads a decimal that the upstream may encode as a JSON
// number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
