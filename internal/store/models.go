package store

import "time"

type (
	// Run describes the parameters of one evolution run
	Run struct {
		ID             string
		StartedAt      time.Time
		FinishedAt     *time.Time
		DataFile       string
		Rows           int
		Cols           int
		Clusters       int
		Population     int
		MaxGenerations int
		Mutation       float64
		Crossover      float64
		Seed           uint64
		Status         string
	}

	// Solution is one stored improvement of a run's best chromosome
	Solution struct {
		ID         int64
		RunID      string
		Generation int
		Slot       int
		Fitness    float64
		Rows       int
		Cols       int
		// Centroids is row-major, Clusters × Cols
		Centroids []float64
		Labels    []int
	}
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
