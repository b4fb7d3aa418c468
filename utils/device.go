package utils

import "strings"

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var tabletMarkers = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var mobileMarkers = []string{"mobi", "iphone", "ipod", "android", "blackberry", "opera mini", "windows phone"}

// DeviceType buckets a User-Agent into mobile, tablet or desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, marker := range tabletMarkers {
		if strings.Contains(ua, marker) {
			return DeviceTablet
		}
	}
	// Android tablets omit "mobile" from the UA.
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return DeviceTablet
	}
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}
