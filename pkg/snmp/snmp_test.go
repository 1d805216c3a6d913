package snmp

import (
	"testing"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/psu"
	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pduName(index string, value string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oidEntPhysicalName + "." + index, Type: gosnmp.OctetString, Value: []byte(value)}
}

func pduDescr(index string, value string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oidEntPhysicalDescr + "." + index, Type: gosnmp.OctetString, Value: []byte(value)}
}

func pduOper(index string, state int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oidEntStateOper + "." + index, Type: gosnmp.Integer, Value: state}
}

func TestInventoryTargets(t *testing.T) {
	inv := Inventory{}
	pdus := []gosnmp.SnmpPDU{
		pduName("100602000", "PowerSupply2"),
		pduName("100601000", "PowerSupply1"),
		pduName("100601111", "PowerSupply1Fan1"),
		pduName("1", "Chassis"),
		pduDescr("100601000", "Power supply 1"),
		pduDescr("100602000", "Power supply 2"),
		pduDescr("100601111", "Fan 1 of power supply 1"),
		pduOper("100601000", 3),
		pduOper("100602000", 3),
		pduOper("100601111", 3),
		{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("sysName")},
	}
	for _, pdu := range pdus {
		require.NoError(t, inv.Record(pdu))
	}

	targets := inv.Targets()
	require.Len(t, targets, 3, "entities without oper state are not targets")
	assert.Equal(t, "1.3.6.1.2.1.131.1.1.1.3.100601000", targets[0].Value)
	assert.Equal(t, []string{"1.3.6.1.2.1.131.1.1.1.3.100601000", "PowerSupply1 ent state oper", "Power supply 1"}, targets[0].Properties)
	assert.Equal(t, 3, inv[100601000].OperState)

	candidates := psu.NewMatcher().Match(targets)
	require.Len(t, candidates, 2)
	assert.Equal(t, "PowerSupply1", candidates[0].Label)
	assert.Equal(t, "PowerSupply2", candidates[1].Label)
}

func TestRecordWithoutLeadingDot(t *testing.T) {
	inv := Inventory{}
	require.NoError(t, inv.Record(gosnmp.SnmpPDU{Name: "1.3.6.1.2.1.47.1.1.1.1.7.5", Type: gosnmp.OctetString, Value: []byte("Power Supply #1")}))
	assert.Equal(t, "Power Supply #1", inv[5].Name)
}

func TestNewClient(t *testing.T) {
	t.Run("v2c defaults", func(t *testing.T) {
		c, err := NewClient("10.0.0.1", Config{Credentials: Credentials{Community: "public"}})
		require.NoError(t, err)
		assert.Equal(t, gosnmp.Version2c, c.Version)
		assert.Equal(t, uint16(DefaultPort), c.Port)
		assert.Equal(t, DefaultTimeout, c.Timeout)
		assert.Equal(t, "public", c.Community)
	})
	t.Run("v3 auth priv", func(t *testing.T) {
		c, err := NewClient("10.0.0.1", Config{Credentials: Credentials{
			Version: Version3, Username: "monitor",
			AuthProtocol: "sha256", AuthPassword: "authpass",
			PrivacyProtocol: "aes", PrivacyPassword: "privpass",
		}})
		require.NoError(t, err)
		assert.Equal(t, gosnmp.AuthPriv, c.MsgFlags)
		usm, ok := c.SecurityParameters.(*gosnmp.UsmSecurityParameters)
		require.True(t, ok)
		assert.Equal(t, gosnmp.SHA256, usm.AuthenticationProtocol)
		assert.Equal(t, gosnmp.AES, usm.PrivacyProtocol)
	})
	t.Run("v3 auth only", func(t *testing.T) {
		c, err := NewClient("10.0.0.1", Config{Credentials: Credentials{Version: Version3, Username: "monitor", AuthProtocol: "SHA", AuthPassword: "authpass"}})
		require.NoError(t, err)
		assert.Equal(t, gosnmp.AuthNoPriv, c.MsgFlags)
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := NewClient("10.0.0.1", Config{Credentials: Credentials{Version: "4"}})
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}
