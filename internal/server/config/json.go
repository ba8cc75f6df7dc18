package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Durations
// accept both "15m" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	DBMaxOpenConns               int            `json:"db_max_open_conns"`
	DBMaxIdleConns               int            `json:"db_max_idle_conns"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	OTPLength                    int            `json:"otp_length"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	LogLevel                     string         `json:"log_level"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
	MailProvider                 string         `json:"mail_provider"`
	MailAPIURL                   string         `json:"mail_api_url"`
	MailAPIKey                   string         `json:"mail_api_key"`
	MailSenderEmail              string         `json:"mail_sender_email"`
	MailSenderName               string         `json:"mail_sender_name"`
	MailTimeout                  timex.Duration `json:"mail_timeout"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file given by -c / -config. Fields
// missing from the file (zero values) leave the current setting untouched.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setInt(&config.OTPLength, c.OTPLength)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.MailProvider, c.MailProvider)
	setString(&config.MailAPIURL, c.MailAPIURL)
	setString(&config.MailAPIKey, c.MailAPIKey)
	setString(&config.MailSenderEmail, c.MailSenderEmail)
	setString(&config.MailSenderName, c.MailSenderName)
	setDuration(&config.MailTimeout, c.MailTimeout)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
