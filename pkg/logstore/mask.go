package logstore

// MaskAPIKey renders apiKey for the management API's GET /providers
// response: the first 4 and last 4 characters separated by asterisks, or
// all asterisks for a key of 8 characters or fewer (too short to mask
// without either revealing everything or nothing new).
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return "************"
	}
	return apiKey[:4] + "****" + apiKey[len(apiKey)-4:]
}
