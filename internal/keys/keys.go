// Package keys builds the composite DynamoDB keys used by the roster tables.
package keys

import "strings"

// refSeparator joins the segments of a composite sort key.
const refSeparator = "#"

// GuestRef returns the type-qualified reference for a guest record.
func GuestRef(guestID string) string {
	return "guest" + refSeparator + guestID
}

// CompanionRef returns the type-qualified reference for a companion record.
func CompanionRef(companionID string) string {
	return "companion" + refSeparator + companionID
}

// CompanionSK computes the companions-table sort key. Companions sort under
// their guest so one prefix query returns a guest's companions in fetch order.
func CompanionSK(guestID, companionID string) string {
	return guestID + refSeparator + companionID
}

// CompanionPrefix returns the sort-key prefix selecting every companion of a guest.
func CompanionPrefix(guestID string) string {
	return guestID + refSeparator
}

// SplitCompanionSK splits a companions-table sort key into guest and companion IDs.
// Returns empty strings if the key is not a valid composite.
func SplitCompanionSK(sk string) (guestID, companionID string) {
	i := strings.Index(sk, refSeparator)
	if i < 0 {
		return "", ""
	}
	return sk[:i], sk[i+len(refSeparator):]
}
