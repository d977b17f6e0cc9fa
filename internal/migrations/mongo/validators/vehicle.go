package validators

import "go.mongodb.org/mongo-driver/bson"

var VehicleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"vehicle_number",
			"city",
			"vehicle_type",
			"driver_name",
			"status",
			"created_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "objectId"},
			"vehicle_number": bson.M{"bsonType": "string", "minLength": 4, "maxLength": 20},
			"vehicle_rc":     bson.M{"bsonType": "string"},
			"city":           bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"city_key":       bson.M{"bsonType": "string"},
			"vehicle_type":   bson.M{"bsonType": "string"},
			"driver_name":    bson.M{"bsonType": "string"},
			"driver_phone":   bson.M{"bsonType": "string"},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"paid", "free", "active", "inactive", "maintenance"},
			},
			"one_time_registration": bson.M{"bsonType": "bool"},
			"registration_date":     bson.M{"bsonType": "date"},
			"created_at":            bson.M{"bsonType": "date"},
			"updated_at":            bson.M{"bsonType": "date"},
		},
	},
}
