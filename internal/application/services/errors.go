package services

import (
	"errors"
	"fmt"
)

var (
	// ErrReportInProgress is the cause of every ReportInProgressError
	ErrReportInProgress = errors.New("report generation already in progress")

	// ErrInvalidComparisonSize rejects comparisons outside 2..5 items
	ErrInvalidComparisonSize = errors.New("comparison requires between 2 and 5 books")

	// ErrDuplicateComparisonItem rejects comparisons naming the same book twice
	ErrDuplicateComparisonItem = errors.New("comparison lists the same book more than once")

	// ErrComparisonUnparseable means the model answer held no usable recommendation
	ErrComparisonUnparseable = errors.New("could not interpret the comparison result, please try again")

	// ErrRecommendedIndexOutOfRange means the model recommended a book that was not compared
	ErrRecommendedIndexOutOfRange = errors.New("recommended book index out of range")

	errReportNotGenerating = errors.New("report is not generating")
)

// ReportInProgressError carries the report that blocks a new generation for the same owner.
type ReportInProgressError struct {
	ExistingReportID string
}

func (e *ReportInProgressError) Error() string {
	return fmt.Sprintf("%s: report %s", ErrReportInProgress, e.ExistingReportID)
}

// Unwrap lets errors.Is match ErrReportInProgress
func (e *ReportInProgressError) Unwrap() error {
	return ErrReportInProgress
}
