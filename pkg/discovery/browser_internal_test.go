package discovery

import (
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func testEntry(instance string, dataPort string, ips ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: Domain},
		HostName:      "scope.local.",
		Port:          5025,
	}
	if dataPort != "" {
		e.Text = []string{TXTKeyDataPort + "=" + dataPort}
	}
	for _, ip := range ips {
		if p := net.ParseIP(ip); p.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, p)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, p)
		}
	}
	return e
}

func TestInstanceTable(t *testing.T) {
	table := make(instanceTable)

	svc := table.add(testEntry("bench", "5026", "192.168.1.5"))
	if svc == nil || svc.Port != 5025 || svc.DataPort != 5026 {
		t.Fatalf("first entry = %+v", svc)
	}

	if again := table.add(testEntry("bench", "5026", "192.168.1.5", "fe80::1")); again != nil {
		t.Errorf("second sighting emitted %+v", again)
	}
	if got := svc.Addresses; len(got) != 2 || got[1] != "fe80::1" {
		t.Errorf("Addresses = %v", got)
	}

	if table.add(testEntry("no-port", "", "10.0.0.1")) != nil {
		t.Error("entry without DATA_PORT accepted")
	}

	table.remove(testEntry("bench", "", "192.168.1.5"))
	if _, ok := table["bench"]; !ok || len(svc.Addresses) != 1 {
		t.Fatalf("after partial removal: %v", svc.Addresses)
	}
	table.remove(testEntry("bench", "", "fe80::1"))
	if _, ok := table["bench"]; ok {
		t.Error("instance kept with no addresses")
	}
	if table.add(testEntry("bench", "5026", "192.168.1.5")) == nil {
		t.Error("returning instance not emitted")
	}
}
