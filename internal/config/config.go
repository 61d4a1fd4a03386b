package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"choiceview-connect/internal/telephony"

	"github.com/joho/godotenv"
)

const (
	defaultTokenURL     = "https://radishsystems.auth0.com/oauth/token"
	defaultAudience     = "https://radishsystems.com/ivr/api/"
	defaultClientURL    = "https://choiceview.com/secure.html"
	defaultMessagingURL = "https://api.twilio.com"
	defaultLookupsURL   = "https://lookups.twilio.com/v1"
	defaultPort         = 8080
	defaultRateLimit    = 20
	defaultRateBurst    = 40
	defaultAWSRegion    = "us-east-1"
)

// Config holds everything the dispatcher needs at startup.
// All values come from env (optionally seeded from a .env file).
// A backend whose settings are missing is reported as not connected at request
// time, so missing backend settings are not validation errors.
type Config struct {
	App     AppConfig
	Switch  SwitchConfig
	Sms     SmsConfig
	Twilio  TwilioConfig
	AWS     AWSConfig
	Redis   RedisConfig
	DB      DBConfig
	Gateway GatewayConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// SwitchConfig addresses the ChoiceView switch REST API.
type SwitchConfig struct {
	// ServiceURL is the API base; it always ends with a slash once loaded.
	ServiceURL   string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Audience     string
}

type SmsConfig struct {
	// UseAWS selects the SNS/Pinpoint backend instead of Twilio.
	UseAWS bool
	// FromNumber overrides the contact's system endpoint as the SMS sender.
	FromNumber string
	// ClientURL is the deep-link base embedded in session invitations.
	ClientURL string
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	PhoneNumber  string
	MessagingURL string
	LookupsURL   string
}

type AWSConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

type RedisConfig struct {
	Addr string
}

type DBConfig struct {
	// URL is a pgx connection string; empty keeps the audit log in memory.
	URL string
}

type GatewayConfig struct {
	JWTSecret string
	JWTIssuer string
	RateLimit float64
	RateBurst int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = getEnv("APP_ENV", "production")
	{
		n, err := optionalInt("APP_PORT", defaultPort)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.App.Port = n
	}

	c.Switch.ServiceURL = withTrailingSlash(strings.TrimSpace(os.Getenv("CHOICEVIEW_SERVICEURL")))
	c.Switch.ClientID = strings.TrimSpace(os.Getenv("CHOICEVIEW_CLIENTID"))
	c.Switch.ClientSecret = os.Getenv("CHOICEVIEW_CLIENTSECRET")
	c.Switch.TokenURL = getEnv("CHOICEVIEW_TOKENURL", defaultTokenURL)
	c.Switch.Audience = getEnv("CHOICEVIEW_AUDIENCE", defaultAudience)

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNTSID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTHTOKEN")
	c.Twilio.PhoneNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONENUMBER"))
	c.Twilio.MessagingURL = getEnv("TWILIO_MESSAGINGURL", defaultMessagingURL)
	c.Twilio.LookupsURL = getEnv("TWILIO_LOOKUPSURL", defaultLookupsURL)

	{
		b, err := optionalBool("USE_AWS_SMS")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Sms.UseAWS = b
	}
	// The Twilio account number is only a sender for Twilio; AWS sends from
	// the contact's system endpoint unless overridden.
	fromFallback := c.Twilio.PhoneNumber
	if c.Sms.UseAWS {
		fromFallback = ""
	}
	c.Sms.FromNumber = getEnv("SMS_FROMNUMBER", fromFallback)
	c.Sms.ClientURL = getEnv("CHOICEVIEW_CLIENTURL", defaultClientURL)

	c.AWS.Region = getEnv("AWS_REGION", defaultAWSRegion)
	c.AWS.AccessKey = strings.TrimSpace(os.Getenv("AWS_SMS_ACCESSKEY"))
	c.AWS.SecretKey = os.Getenv("AWS_SMS_SECRETKEY")

	c.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	c.DB.URL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	c.Gateway.JWTSecret = os.Getenv("GATEWAY_JWT_SECRET")
	c.Gateway.JWTIssuer = strings.TrimSpace(os.Getenv("GATEWAY_JWT_ISSUER"))
	{
		f, err := optionalFloat("GATEWAY_RATE_LIMIT", defaultRateLimit)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Gateway.RateLimit = f
		n, err := optionalInt("GATEWAY_RATE_BURST", defaultRateBurst)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Gateway.RateBurst = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Sms.FromNumber != "" {
		n, err := telephony.NormalizeE164(c.Sms.FromNumber)
		if err != nil {
			errs = append(errs, fmt.Errorf("SMS_FROMNUMBER must be a valid phone number, got %q", c.Sms.FromNumber))
		} else {
			c.Sms.FromNumber = n
		}
	}
	if _, err := url.ParseRequestURI(c.Sms.ClientURL); err != nil {
		errs = append(errs, fmt.Errorf("CHOICEVIEW_CLIENTURL must be an absolute url, got %q", c.Sms.ClientURL))
	}
	if c.Sms.UseAWS && c.AWS.Region == "" {
		errs = append(errs, errors.New("AWS_REGION is required when USE_AWS_SMS is set"))
	}
	if (c.AWS.AccessKey == "") != (c.AWS.SecretKey == "") {
		errs = append(errs, errors.New("AWS_SMS_ACCESSKEY and AWS_SMS_SECRETKEY must be set together"))
	}

	if c.Gateway.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("GATEWAY_RATE_LIMIT must be positive, got %v", c.Gateway.RateLimit))
	}
	if c.Gateway.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("GATEWAY_RATE_BURST must be positive, got %d", c.Gateway.RateBurst))
	}
	if c.IsProduction() && c.Gateway.JWTSecret != "" && len(c.Gateway.JWTSecret) < 32 {
		errs = append(errs, errors.New("GATEWAY_JWT_SECRET must be at least 32 bytes in production"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Configured reports whether the switch can be reached with credentials.
func (s SwitchConfig) Configured() bool {
	return s.ServiceURL != "" && s.ClientID != "" && strings.TrimSpace(s.ClientSecret) != ""
}

// Configured mirrors the Twilio client requirements: sid, token and number.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && strings.TrimSpace(t.AuthToken) != "" && t.PhoneNumber != ""
}

// SmsBackendName names the backend selected by USE_AWS_SMS.
func (c Config) SmsBackendName() string {
	if c.Sms.UseAWS {
		return "aws"
	}
	return "twilio"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func withTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func optionalInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
