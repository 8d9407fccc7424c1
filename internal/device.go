package internal

import "github.com/google/uuid"

// DeviceID returns the persistent anonymous identity of this installation,
// creating it on first use.
func DeviceID(p *Persistence) string {
	var id string
	if p.Load(GlobalScope(FeatureDevice), &id) && id != "" {
		return id
	}
	id = uuid.NewString()
	if err := p.Save(GlobalScope(FeatureDevice), id); err != nil {
		LogWarn("Failed to persist device id: %v", err)
	}
	return id
}
