package domain

// ImageRecord - a property image row in the catalog. StorageKey is the object store
// location of the original (or legacy) file, PublicURL a previously computed external URL.
type ImageRecord struct {
	ID         int64  `json:"id" dynamodbav:"id"`                   // Sort Key
	PropertyID int64  `json:"property_id" dynamodbav:"property_id"` // Partition Key
	StorageKey string `json:"s3_key" dynamodbav:"s3_key"`
	PublicURL  string `json:"url" dynamodbav:"url"`
}

// ImageFilter narrows a catalog listing. A nil PropertyID lists every record.
type ImageFilter struct {
	PropertyID *int64
}
