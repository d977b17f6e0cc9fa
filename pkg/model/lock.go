package model

import "time"

// VehicleLock is the Mongo document backing a per-vehicle write lock.
// Its _id is the vehicle id so a second insert fails with a duplicate key.
type VehicleLock struct {
	VehicleID string    `bson:"_id" json:"vehicle_id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
