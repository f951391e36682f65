package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a…@e….com", MaskEmail(" Alice@Example.com "))
	assert.Equal(t, "", MaskEmail(""))
	assert.Equal(t, "***", MaskEmail("bob"))
	assert.Equal(t, "b…y", MaskEmail("bobby"))
}

func TestMaskURI(t *testing.T) {
	assert.Equal(t, "mongodb://admin:xxxxx@db:27017/?replicaSet=rs0", MaskURI("mongodb://admin:s3cret@db:27017/?replicaSet=rs0"))
	assert.Equal(t, "mongodb://db:27017", MaskURI("mongodb://db:27017"))
	assert.Equal(t, "***", MaskURI("mongodb://%zz"))
}
