package validators

import "go.mongodb.org/mongo-driver/bson"

var stopSchema = bson.M{
	"bsonType": "object",
	"required": []string{"name", "mobile"},
	"properties": bson.M{
		"name":   bson.M{"bsonType": "string"},
		"mobile": bson.M{"bsonType": "string"},
	},
}

var PackageBookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_ref",
			"pickup",
			"drop",
			"package",
			"assigned_vehicle_id",
			"estimated_start_time",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"booking_ref": bson.M{"bsonType": "string"},
			"pickup":      stopSchema,
			"drop":        stopSchema,
			"package": bson.M{
				"bsonType": "object",
				"required": []string{"type", "weight"},
			},
			"assigned_vehicle_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"delivery_type":        bson.M{"bsonType": "string", "enum": []string{"standard", "express"}},
			"estimated_start_time": bson.M{"bsonType": "date"},
			"status":               bson.M{"bsonType": "string", "enum": bookingStatuses},
			"payment_status":       bson.M{"bsonType": "string", "enum": paymentStatuses},
			"created_at":           bson.M{"bsonType": "date"},
		},
	},
}
