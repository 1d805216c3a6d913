// Package snmp reads the entity inventory of a device directly over SNMP.
// It produces the same inventory targets a PRTG library probe returns so
// that new hardware can be checked against the matcher without a PRTG
// server.
package snmp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const (
	Version1  = "1"
	Version2c = "2c"
	Version3  = "3"

	DefaultPort    = 161
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 1
)

var ErrUnsupportedVersion = errors.New("unsupported SNMP version")

// Credentials select the SNMP version and its security parameters.
type Credentials struct {
	Version         string `json:"version" yaml:"version"`
	Community       string `json:"community,omitempty" yaml:"community,omitempty"`
	Username        string `json:"username,omitempty" yaml:"username,omitempty"`
	AuthProtocol    string `json:"auth_protocol,omitempty" yaml:"auth_protocol,omitempty"`
	AuthPassword    string `json:"auth_password,omitempty" yaml:"auth_password,omitempty"`
	PrivacyProtocol string `json:"privacy_protocol,omitempty" yaml:"privacy_protocol,omitempty"`
	PrivacyPassword string `json:"privacy_password,omitempty" yaml:"privacy_password,omitempty"`
}

type Config struct {
	Port        uint16
	Timeout     time.Duration
	Retries     int
	Credentials Credentials
}

// NewClient creates an unconnected SNMP client for target.
func NewClient(target string, cfg Config) (*gosnmp.GoSNMP, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := &gosnmp.GoSNMP{
		Target:             target,
		Port:               cfg.Port,
		Timeout:            cfg.Timeout,
		Retries:            cfg.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     10,
		ExponentialTimeout: true,
	}
	if err := configureVersion(client, cfg.Credentials); err != nil {
		return nil, err
	}
	return client, nil
}

func configureVersion(client *gosnmp.GoSNMP, creds Credentials) error {
	switch creds.Version {
	case Version1:
		client.Version = gosnmp.Version1
		client.Community = creds.Community
	case Version2c, "":
		client.Version = gosnmp.Version2c
		client.Community = creds.Community
	case Version3:
		client.Version = gosnmp.Version3
		client.SecurityModel = gosnmp.UserSecurityModel
		usm := &gosnmp.UsmSecurityParameters{UserName: creds.Username}
		client.MsgFlags = gosnmp.NoAuthNoPriv
		if configureAuthentication(usm, creds) {
			client.MsgFlags = gosnmp.AuthNoPriv
			if configurePrivacy(usm, creds) {
				client.MsgFlags = gosnmp.AuthPriv
			}
		}
		client.SecurityParameters = usm
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, creds.Version)
	}
	return nil
}

func configureAuthentication(usm *gosnmp.UsmSecurityParameters, creds Credentials) bool {
	switch strings.ToUpper(creds.AuthProtocol) {
	case "MD5":
		usm.AuthenticationProtocol = gosnmp.MD5
	case "SHA":
		usm.AuthenticationProtocol = gosnmp.SHA
	case "SHA224":
		usm.AuthenticationProtocol = gosnmp.SHA224
	case "SHA256":
		usm.AuthenticationProtocol = gosnmp.SHA256
	case "SHA384":
		usm.AuthenticationProtocol = gosnmp.SHA384
	case "SHA512":
		usm.AuthenticationProtocol = gosnmp.SHA512
	default:
		return false
	}
	usm.AuthenticationPassphrase = creds.AuthPassword
	return true
}

func configurePrivacy(usm *gosnmp.UsmSecurityParameters, creds Credentials) bool {
	switch strings.ToUpper(creds.PrivacyProtocol) {
	case "DES":
		usm.PrivacyProtocol = gosnmp.DES
	case "AES":
		usm.PrivacyProtocol = gosnmp.AES
	case "AES192":
		usm.PrivacyProtocol = gosnmp.AES192
	case "AES256":
		usm.PrivacyProtocol = gosnmp.AES256
	default:
		return false
	}
	usm.PrivacyPassphrase = creds.PrivacyPassword
	return true
}
