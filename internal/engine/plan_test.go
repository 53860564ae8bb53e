package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywarden/internal/keys"
)

func matchedFixture() []Match {
	ros := makeTestRoster()
	return []Match{
		{
			Key:     makeTestKey("hash-a", "20260227_Chaeyeon Kim_60853425", keys.LimitOf(25), false),
			Email:   "chaeyeon.kim@example.com",
			Student: ros["chaeyeon.kim@example.com"],
		},
		{
			Key:     makeTestKey("hash-b", "20260227_Dasol Kim_60853379", keys.LimitOf(5), false),
			Email:   "dasol.kim@example.com",
			Student: ros["dasol.kim@example.com"],
		},
	}
}

func limitTarget(amount float64) Target {
	l := keys.LimitOf(amount)
	return Target{Limit: &l}
}

func TestComputeChanges_NoTargetsIsNoOp(t *testing.T) {
	changes, skipped := ComputeChanges(matchedFixture(), nil)
	assert.Empty(t, changes)
	assert.Empty(t, skipped)
}

func TestComputeChanges_TargetEqualsActualIsNoOp(t *testing.T) {
	targets := map[string]Target{
		"chaeyeon.kim@example.com": limitTarget(25),
		"dasol.kim@example.com":    limitTarget(5),
	}

	changes, skipped := ComputeChanges(matchedFixture(), targets)
	assert.Empty(t, changes)
	assert.Empty(t, skipped)
}

func TestComputeChanges_EmitsLimitChange(t *testing.T) {
	targets := map[string]Target{
		"chaeyeon.kim@example.com": limitTarget(10),
	}

	changes, _ := ComputeChanges(matchedFixture(), targets)

	require.Len(t, changes, 1)
	change := changes[0]
	assert.Equal(t, ChangeLimit, change.Kind)
	assert.Equal(t, "hash-a", change.KeyHash)
	assert.Equal(t, "20260227_Chaeyeon Kim_60853425", change.KeyName)
	assert.Equal(t, keys.LimitOf(25), change.OldLimit)
	assert.Equal(t, keys.LimitOf(10), change.NewLimit)
	assert.Equal(t, "25", change.OldValue())
	assert.Equal(t, "10", change.NewValue())
}

func TestComputeChanges_UnlimitedTargetAgainstNumericActual(t *testing.T) {
	unlimited := keys.Unlimited()
	targets := map[string]Target{
		"dasol.kim@example.com": {Limit: &unlimited},
	}

	changes, _ := ComputeChanges(matchedFixture(), targets)

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeLimit, changes[0].Kind)
	assert.Equal(t, keys.LimitOf(5), changes[0].OldLimit)
	assert.False(t, changes[0].NewLimit.IsSet())
	assert.Equal(t, "unlimited", changes[0].NewValue())
}

func TestComputeChanges_ZeroIsNotUnlimited(t *testing.T) {
	matched := []Match{
		{
			Key:   makeTestKey("hash-z", "20260227_Chaeyeon Kim_60853425", keys.LimitOf(0), false),
			Email: "chaeyeon.kim@example.com",
		},
	}

	// Target zero against actual zero: no change.
	changes, _ := ComputeChanges(matched, map[string]Target{
		"chaeyeon.kim@example.com": limitTarget(0),
	})
	assert.Empty(t, changes)

	// Target unlimited against actual zero: a real change.
	unlimited := keys.Unlimited()
	changes, _ = ComputeChanges(matched, map[string]Target{
		"chaeyeon.kim@example.com": {Limit: &unlimited},
	})
	require.Len(t, changes, 1)
	assert.Equal(t, "0", changes[0].OldValue())
	assert.Equal(t, "unlimited", changes[0].NewValue())
}

func TestComputeChanges_EmitsDisabledChange(t *testing.T) {
	disabled := true
	targets := map[string]Target{
		"chaeyeon.kim@example.com": {Disabled: &disabled},
	}

	changes, _ := ComputeChanges(matchedFixture(), targets)

	require.Len(t, changes, 1)
	change := changes[0]
	assert.Equal(t, ChangeDisabled, change.Kind)
	assert.False(t, change.OldDisabled)
	assert.True(t, change.NewDisabled)
	assert.Equal(t, "false", change.OldValue())
	assert.Equal(t, "true", change.NewValue())
}

func TestComputeChanges_BothKindsForOneKey(t *testing.T) {
	unlimited := keys.Unlimited()
	disabled := true
	targets := map[string]Target{
		"chaeyeon.kim@example.com": {Limit: &unlimited, Disabled: &disabled},
	}

	changes, _ := ComputeChanges(matchedFixture(), targets)

	require.Len(t, changes, 2)
	assert.Equal(t, ChangeLimit, changes[0].Kind)
	assert.Equal(t, ChangeDisabled, changes[1].Kind)
	assert.Equal(t, changes[0].KeyHash, changes[1].KeyHash)
}

func TestComputeChanges_SkipsUnknownTargetEmails(t *testing.T) {
	targets := map[string]Target{
		"zed.left@example.com":     limitTarget(1),
		"amber.gone@example.com":   limitTarget(2),
		"chaeyeon.kim@example.com": limitTarget(25),
	}

	changes, skipped := ComputeChanges(matchedFixture(), targets)

	assert.Empty(t, changes)
	assert.Equal(t, []string{"amber.gone@example.com", "zed.left@example.com"}, skipped)
}

func TestComputeChanges_FollowsMatchedOrder(t *testing.T) {
	unlimited := keys.Unlimited()
	targets := map[string]Target{
		"chaeyeon.kim@example.com": {Limit: &unlimited},
		"dasol.kim@example.com":    {Limit: &unlimited},
	}

	changes, _ := ComputeChanges(matchedFixture(), targets)

	require.Len(t, changes, 2)
	assert.Equal(t, "hash-a", changes[0].KeyHash)
	assert.Equal(t, "hash-b", changes[1].KeyHash)
}

func TestChange_Describe(t *testing.T) {
	tests := []struct {
		name   string
		change Change
		want   string
	}{
		{
			name: "limit to unlimited",
			change: Change{
				KeyName:  "20260227_Chaeyeon Kim_60853425",
				Kind:     ChangeLimit,
				OldLimit: keys.LimitOf(25),
				NewLimit: keys.Unlimited(),
			},
			want: "20260227_Chaeyeon Kim_60853425: limit $25 -> unlimited",
		},
		{
			name: "limit decrease",
			change: Change{
				KeyName:  "k",
				Kind:     ChangeLimit,
				OldLimit: keys.LimitOf(10.5),
				NewLimit: keys.LimitOf(3),
			},
			want: "k: limit $10.5 -> $3",
		},
		{
			name: "disable",
			change: Change{
				KeyName:     "k",
				Kind:        ChangeDisabled,
				NewDisabled: true,
			},
			want: "k: enabled -> disabled",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.change.Describe())
		})
	}
}
