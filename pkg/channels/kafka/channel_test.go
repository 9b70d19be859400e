package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokers(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want []string
	}{
		{name: "empty", env: "", want: []string{}},
		{name: "single", env: "localhost:9092", want: []string{"localhost:9092"}},
		{name: "list with blanks", env: " a:9092, ,b:9092 ", want: []string{"a:9092", "b:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KAFKA_BROKERS", tt.env)
			assert.Equal(t, tt.want, Brokers())
		})
	}
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := CreateChannel(watermill.NopLogger{}, "journey")
	require.ErrorIs(t, err, ErrNoBrokers)
}
