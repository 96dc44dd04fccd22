package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVendor(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"F0:18:98:4C:21:0A", "Apple"},
		{"f0:18:98:4c:21:0a", "Apple"},
		{"24:0A:C4:00:B1:E8", "Espressif"},
		{"A4:C1:38:ED:C0:21", "Telink"},
		{"5A:2B:C8:71:0F:93", VendorRandom},
		{"E6:4B:2A:19:C0:5D", VendorRandom},
		{"00:11:22:33:44:55", VendorUnknown},
		{"6F3C2A0E-1B7D-4C6E-9A21-55B0E7F0D3A1", VendorUnknown},
		{"", VendorUnknown},
		{"ZZ:18:98:00:00:00", VendorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, Vendor(tt.address))
		})
	}
}

func TestVendorDemoDevicesResolve(t *testing.T) {
	for _, d := range demoDevices {
		assert.NotEmpty(t, Vendor(d.address), d.name)
	}
}
