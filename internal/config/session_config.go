package config

import "time"

type SessionConfig interface {
	GetDeviceCookieName() string
	GetDeviceCookieMaxAge() time.Duration
	GetSecureCookies() bool
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetDeviceCookieName() string {
	return GetEnv("DEVICE_COOKIE", "academy_device")
}

func (Session) GetDeviceCookieMaxAge() time.Duration {
	return GetEnvDuration("DEVICE_COOKIE_MAX_AGE", 30*24*time.Hour)
}

// GetSecureCookies defaults to true outside DEV
func (Session) GetSecureCookies() bool {
	return GetEnvBool("SECURE_COOKIES", EnvVars{}.GetEnv() != "DEV")
}
