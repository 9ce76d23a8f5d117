package session

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Dispositivo desconhecido"

// DeviceLabel turns a User-Agent into "Navegador em Sistema", e.g.
// "Chrome em Windows 10".
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	system := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		system = ua.Platform()
	}

	browser = strings.TrimSpace(browser)
	system = strings.TrimSpace(system)
	switch {
	case browser == "" && system == "":
		return unknownDevice
	case browser == "":
		return "Navegador desconhecido em " + system
	case system == "":
		return browser
	}
	return browser + " em " + system
}
