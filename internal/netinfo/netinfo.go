// Package netinfo builds the address remote clients use to reach the server.
package netinfo

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// LocalAddress returns the address of the interface used for outbound traffic.
// Dialing UDP sends no packets; it only selects a route.
func LocalAddress() (net.IP, bool) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, false
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return nil, false
	}
	return addr.IP, true
}

// ServerURL returns the base URL of the server. A nil ip falls back to localhost.
func ServerURL(ip net.IP, port uint16) string {
	host := "localhost"
	if ip != nil {
		host = ip.String()
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
	return u.String()
}

// WithPIN embeds pin as a query parameter so a scanned QR code logs in directly.
func WithPIN(serverURL, pin string) string {
	if pin == "" {
		return serverURL
	}
	return serverURL + "?" + url.Values{"pin": {pin}}.Encode()
}

const DefaultQRSize = 320

// RenderQR encodes text as a PNG QR code of size×size pixels.
func RenderQR(text string, size int) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}

// DataURL wraps a PNG image for direct use in an <img> tag.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
