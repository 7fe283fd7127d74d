package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mythic3011/AED-Api/pkg/validator"
)

type nearbyBody struct {
	Lat    float64 `validate:"lat"`
	Lng    float64 `validate:"lng"`
	Radius float64 `validate:"radius_km"`
}

func TestValidateStruct_CustomTags(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.ValidateStruct(nearbyBody{Lat: 22.3193, Lng: 114.1694, Radius: 1}))

	assert.Error(t, validator.ValidateStruct(nearbyBody{Lat: 91, Lng: 0, Radius: 1}))
	assert.Error(t, validator.ValidateStruct(nearbyBody{Lat: 0, Lng: -180.01, Radius: 1}))
	assert.Error(t, validator.ValidateStruct(nearbyBody{Lat: 0, Lng: 0, Radius: 0}))
	assert.Error(t, validator.ValidateStruct(nearbyBody{Lat: 0, Lng: 0, Radius: 101}))
}
