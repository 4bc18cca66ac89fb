package app

import (
	"net"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/discount"
	"github.com/lubart/discount-service/internal/domain/value"
)

// Config holds the complete application configuration, loadable from
// environment variables (DISCOUNT_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`

	// CustomerServiceURL and ProductServiceURL point at the external entity
	// service. When empty and EmbedEntities is on, the server resolves
	// entities against itself.
	CustomerServiceURL string `usage:"Base URL of the customer entity service" flag:"customer-service-url"`
	ProductServiceURL  string `usage:"Base URL of the product entity service" flag:"product-service-url"`

	// EmbedEntities serves the bundled customer/product fixtures from this
	// server, simulating the external entity service.
	EmbedEntities bool `default:"true" usage:"Serve the bundled entity fixtures on this server" flag:"embed-entities"`

	LookupTimeout time.Duration `default:"5s" usage:"Timeout for a single entity lookup" flag:"lookup-timeout"`

	Rules    RulesConfig
	CORS     CORSConfig
	Graceful GracefulConfig
}

// RulesConfig holds the discount rule thresholds and category identifiers.
type RulesConfig struct {
	GoldCustomerRevenue     float64 `default:"1000" usage:"Lifetime revenue qualifying a customer for the gold discount" flag:"gold-customer-revenue"`
	GoldCustomerDiscount    float64 `default:"10" usage:"Gold customer discount in percent" flag:"gold-customer-discount"`
	ToolCategory            int     `default:"1" usage:"Category ID of tools" flag:"tool-category"`
	SwitcherCategory        int     `default:"2" usage:"Category ID of switchers" flag:"switcher-category"`
	RequiredSwitchersAmount int     `default:"5" usage:"Switcher units required before the next one is free" flag:"required-switchers-amount"`
	CheapestToolDiscount    float64 `default:"20" usage:"Cheapest tool discount in percent" flag:"cheapest-tool-discount"`
}

// Params converts the raw configuration into validated rule parameters.
func (c RulesConfig) Params() (discount.Params, error) {
	goldDiscount, err := value.Percent(decimal.NewFromFloat(c.GoldCustomerDiscount))
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "gold customer discount")
	}
	switcherCategory, err := value.NewNumericID(c.SwitcherCategory)
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "switcher category")
	}
	switcherMinQty, err := value.NewQuantity(c.RequiredSwitchersAmount)
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "required switchers amount")
	}
	toolCategory, err := value.NewNumericID(c.ToolCategory)
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "tool category")
	}
	toolDiscount, err := value.Percent(decimal.NewFromFloat(c.CheapestToolDiscount))
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "cheapest tool discount")
	}
	toolMinUnits, err := value.NewQuantity(2)
	if err != nil {
		return discount.Params{}, errors.Wrap(err, "tool minimum units")
	}

	return discount.Params{
		GoldRevenueThreshold: decimal.NewFromFloat(c.GoldCustomerRevenue),
		GoldDiscount:         goldDiscount,
		SwitcherCategory:     switcherCategory,
		SwitcherMinQuantity:  switcherMinQty,
		ToolCategory:         toolCategory,
		ToolDiscount:         toolDiscount,
		ToolMinUnits:         toolMinUnits,
	}, nil
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and legacy environment names.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DISCOUNT",
		Files:     []string{"config.yaml", "/etc/discount/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyLegacyDefaults()

	return &cfg, nil
}

// applyLegacyDefaults maps the entity server environment names the original
// deployment used (CUSTOMER_SERVER, PRODUCT_SERVER) and the platform PORT
// variable onto the DISCOUNT_-prefixed configuration.
func (c *Config) applyLegacyDefaults() {
	if c.CustomerServiceURL == "" {
		c.CustomerServiceURL = os.Getenv("CUSTOMER_SERVER")
	}
	if c.ProductServiceURL == "" {
		c.ProductServiceURL = os.Getenv("PRODUCT_SERVER")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// selfBaseURL derives a loopback base URL for the embedded entity service
// from the listen address.
func selfBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
