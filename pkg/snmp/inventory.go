package snmp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

const (
	oidEntPhysicalDescr = ".1.3.6.1.2.1.47.1.1.1.1.2"
	oidEntPhysicalName  = ".1.3.6.1.2.1.47.1.1.1.1.7"
	oidEntStateOper     = ".1.3.6.1.2.1.131.1.1.1.3"
)

// Entity is one row of the ENTITY-MIB physical table joined with its
// ENTITY-STATE-MIB operational state.
type Entity struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Descr     string `json:"descr"`
	OperState int    `json:"oper_state"`
	HasOper   bool   `json:"-"`
}

// Inventory collects entities by their entPhysicalIndex.
type Inventory map[int]*Entity

// WalkInventory walks the entity tables of host and returns them as
// inventory targets.
func WalkInventory(ctx context.Context, host string, cfg Config) ([]prtg.SensorTarget, error) {
	client, err := NewClient(host, cfg)
	if err != nil {
		return nil, err
	}
	client.Context = ctx
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer client.Conn.Close()

	inv := Inventory{}
	walk := client.BulkWalk
	if client.Version == gosnmp.Version1 {
		walk = client.Walk
	}
	for _, oid := range []string{oidEntPhysicalName, oidEntPhysicalDescr, oidEntStateOper} {
		if err := walk(oid, inv.Record); err != nil {
			return nil, fmt.Errorf("failed to walk %s on %s: %w", oid, host, err)
		}
	}
	log.Debug().Str("host", host).Int("entities", len(inv)).Msg("walked entity inventory")
	return inv.Targets(), nil
}

// Record adds a single walked variable to the inventory. Variables outside
// the walked tables are ignored.
func (inv Inventory) Record(pdu gosnmp.SnmpPDU) error {
	name := pdu.Name
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}
	i := strings.LastIndex(name, ".")
	index, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return nil
	}

	entity, ok := inv[index]
	if !ok {
		entity = &Entity{Index: index}
	}
	switch name[:i] {
	case oidEntPhysicalName:
		entity.Name = octetString(pdu)
	case oidEntPhysicalDescr:
		entity.Descr = octetString(pdu)
	case oidEntStateOper:
		if v := gosnmp.ToBigInt(pdu.Value); v.IsInt64() {
			entity.OperState = int(v.Int64())
		}
		entity.HasOper = true
	default:
		return nil
	}
	inv[index] = entity
	return nil
}

// Targets renders every entity with an operational state as a target in
// the row layout of a PRTG library probe: the entStateOper OID, the
// entity name suffixed with the column name, then the description.
func (inv Inventory) Targets() []prtg.SensorTarget {
	indexes := make([]int, 0, len(inv))
	for index, e := range inv {
		if e.HasOper {
			indexes = append(indexes, index)
		}
	}
	slices.Sort(indexes)

	targets := make([]prtg.SensorTarget, 0, len(indexes))
	for _, index := range indexes {
		e := inv[index]
		oid := fmt.Sprintf("%s.%d", strings.TrimPrefix(oidEntStateOper, "."), index)
		targets = append(targets, prtg.SensorTarget{
			Value:      oid,
			Properties: []string{oid, strings.TrimSpace(e.Name + " ent state oper"), e.Descr},
		})
	}
	return targets
}

func octetString(pdu gosnmp.SnmpPDU) string {
	if b, ok := pdu.Value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(pdu.Value)
}
