package reconcile

import "glass-tracker/feature/glass/models"

// DeriveStatus maps counters to a status, first rule wins.
func DeriveStatus(ordered, delivered int) models.GlassOrderStatus {
	switch {
	case ordered == 0:
		return models.StatusNotOrdered
	case delivered == 0:
		return models.StatusOrdered
	case delivered < ordered:
		return models.StatusPartiallyDelivered
	case delivered == ordered:
		return models.StatusDelivered
	default:
		return models.StatusOverDelivered
	}
}
