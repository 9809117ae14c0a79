package models

import "github.com/lumela/huecircle/internal/identity"

// ToViewerPayload builds the viewer-safe projection of a peer's signal:
// exactly {connectionId, color, peerDisplayName?}. No timestamp, TTL, tag,
// note, score, or device/location field may ever appear here; the shape
// is enforced by laws.AssertViewerSafe, not merely documented.
//
// peerDisplayName is omitted when empty (consent not given or not
// resolvable; resolution is fail-closed).
func ToViewerPayload(connectionID identity.ConnectionID, color SignalColor, peerDisplayName string) map[string]any {
	payload := map[string]any{
		"connectionId": string(connectionID),
		"color":        string(color),
	}
	if peerDisplayName != "" {
		payload["peerDisplayName"] = peerDisplayName
	}
	return payload
}
