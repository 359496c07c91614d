package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelOf(info, low, medium, high, critical int) Level {
	l := Level{Info: info, Low: low, Medium: medium, High: high, Critical: critical}
	l.Total = info + low + medium + high + critical
	l.Finalize()
	return l
}

func TestGradeTable(t *testing.T) {
	tests := []struct {
		name                             string
		info, low, medium, high, critcnt int
		want                             string
	}{
		{"no findings", 0, 0, 0, 0, 0, GradeNone},
		{"info only", 3, 0, 0, 0, 0, GradeA},
		{"one medium five low", 0, 5, 1, 0, 0, GradeB},
		{"boundary low six", 0, 6, 1, 0, 0, GradeC},
		{"five medium", 0, 0, 5, 0, 0, GradeC},
		{"one high", 0, 0, 3, 1, 0, GradeD},
		{"three high", 0, 0, 0, 3, 0, GradeE},
		{"two high six medium", 0, 0, 6, 2, 0, GradeE},
		{"four high", 0, 0, 0, 4, 0, GradeF},
		{"single critical", 0, 1, 2, 0, 1, GradeF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levelOf(tt.info, tt.low, tt.medium, tt.high, tt.critcnt)
			assert.Equal(t, tt.want, got.Grade)
		})
	}
}

func TestGradeBoundaryExactness(t *testing.T) {
	b := levelOf(0, 5, 1, 0, 0)
	require.Equal(t, GradeB, b.Grade)

	c := levelOf(0, 6, 1, 0, 0)
	require.Equal(t, GradeC, c.Grade)
}

func TestGradeMonotonicityUnderCriticals(t *testing.T) {
	// Adding criticals must never improve the grade.
	prev := levelOf(2, 3, 1, 0, 0)
	for criticals := 1; criticals <= 10; criticals++ {
		cur := levelOf(2, 3, 1, 0, criticals)
		assert.GreaterOrEqual(t, cur.Grade, prev.Grade,
			"grade improved after adding critical findings")
		prev = cur
	}
}

func TestNoFindingsAlwaysNoGrade(t *testing.T) {
	l := DefaultLevel()
	assert.Equal(t, GradeNone, l.Grade)
	assert.True(t, l.IsZero())

	l.Finalize()
	assert.Equal(t, GradeNone, l.Grade)
}

func TestScoreComposition(t *testing.T) {
	// Grade C with low=2 medium=1: 300 + 2*1 + 1*3 = 305.
	l := Level{Low: 2, Medium: 1, Total: 3, Grade: GradeC}
	assert.Equal(t, 305, Score(l))
}

func TestScoreNoGrade(t *testing.T) {
	assert.Equal(t, 0, Score(DefaultLevel()))
}

func TestScoreWeights(t *testing.T) {
	l := levelOf(0, 1, 1, 4, 0)
	require.Equal(t, GradeF, l.Grade)
	assert.Equal(t, 600+1+3+40, Score(l))
}

func TestAddTallies(t *testing.T) {
	var l Level
	for _, s := range []string{"info", "low", "low", "medium", "high", "critical", "bogus"} {
		l.Add(s)
	}
	assert.Equal(t, 7, l.Total)
	assert.Equal(t, 1, l.Info)
	assert.Equal(t, 2, l.Low)
	assert.Equal(t, 1, l.Medium)
	assert.Equal(t, 1, l.High)
	assert.Equal(t, 1, l.Critical)
}
