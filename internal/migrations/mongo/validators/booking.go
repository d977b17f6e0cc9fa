package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingStatuses = []string{
	"pending",
	"confirmed",
	"in-progress",
	"completed",
	"cancelled",
}

var paymentStatuses = []string{"pending", "paid", "failed"}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_ref",
			"vehicle_id",
			"customer_name",
			"start_date",
			"status",
			"payment_status",
			"booking_type",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_ref": bson.M{
				"bsonType":  "string",
				"minLength": 3,
			},

			"vehicle_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"customer_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"total_price": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum":     paymentStatuses,
			},

			"booking_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"vehicle", "package_delivery"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
