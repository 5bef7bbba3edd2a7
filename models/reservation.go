package models

// ReservationRecord is an append-only ledger entry for an approved booking.
// Entries are never updated or deleted.
type ReservationRecord struct {
	ID                string `json:"id" bson:"id"`
	RequestID         string `json:"request_id,omitempty" bson:"requestId,omitempty"`
	Name              string `json:"name" bson:"name"`
	CarNumber         string `json:"car_number" bson:"carNumber"`
	ReservationPeriod string `json:"reservation_period" bson:"reservationPeriod"`
	ApprovalTime      string `json:"approval_time" bson:"approvalTime"`
	SpotID            string `json:"spot_id,omitempty" bson:"spotId,omitempty"`
	CreatedAt         string `json:"created_at" bson:"createdAt"`
}
