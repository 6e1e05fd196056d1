package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		expected string
	}{
		{"Audio Delete", JobTypeAudioDelete, "audio_delete"},
		{"Counter Flush", JobTypeCounterFlush, "counter_flush"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.jobType))
		})
	}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"Pending", JobStatusPending, "pending"},
		{"Processing", JobStatusProcessing, "processing"},
		{"Completed", JobStatusCompleted, "completed"},
		{"Failed", JobStatusFailed, "failed"},
		{"Retrying", JobStatusRetrying, "retrying"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       *Job
		retryable bool
	}{
		{
			name: "Failed job with retries remaining",
			job: &Job{
				Status:     JobStatusFailed,
				RetryCount: 1,
				MaxRetries: 3,
			},
			retryable: true,
		},
		{
			name: "Failed job with no retries remaining",
			job: &Job{
				Status:     JobStatusFailed,
				RetryCount: 3,
				MaxRetries: 3,
			},
			retryable: false,
		},
		{
			name: "Completed job",
			job: &Job{
				Status:     JobStatusCompleted,
				RetryCount: 1,
				MaxRetries: 3,
			},
			retryable: false,
		},
		{
			name: "Pending job",
			job: &Job{
				Status:     JobStatusPending,
				RetryCount: 0,
				MaxRetries: 3,
			},
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

func TestJob_MarkAsProcessing(t *testing.T) {
	job := &Job{
		Status: JobStatusPending,
	}

	beforeTime := time.Now()
	job.MarkAsProcessing()
	afterTime := time.Now()

	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.True(t, job.UpdatedAt.After(beforeTime) || job.UpdatedAt.Equal(beforeTime))
	assert.True(t, job.UpdatedAt.Before(afterTime) || job.UpdatedAt.Equal(afterTime))
	assert.NotNil(t, job.ProcessedAt)
}

func TestJob_MarkAsCompleted(t *testing.T) {
	job := &Job{
		Status:   JobStatusProcessing,
		ErrorMsg: "some error",
	}

	job.MarkAsCompleted()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestJob_MarkAsFailed(t *testing.T) {
	job := &Job{
		Status:     JobStatusProcessing,
		RetryCount: 1,
	}

	errorMsg := "processing failed"
	job.MarkAsFailed(errorMsg)

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, errorMsg, job.ErrorMsg)
	assert.Equal(t, 2, job.RetryCount)
}

func TestJob_MarkAsRetrying(t *testing.T) {
	job := &Job{
		Status: JobStatusFailed,
	}

	job.MarkAsRetrying()

	assert.Equal(t, JobStatusRetrying, job.Status)
}

func TestAudioDeleteJobPayload_ToMap(t *testing.T) {
	payload := AudioDeleteJobPayload{
		TrackID:   123,
		TrackUUID: "test-uuid-123",
		AudioKey:  "audio/2026/01/test-uuid-123.mp3",
	}

	result := payload.ToMap()

	expected := map[string]interface{}{
		"track_id":   uint(123),
		"track_uuid": "test-uuid-123",
		"audio_key":  "audio/2026/01/test-uuid-123.mp3",
	}

	assert.Equal(t, expected, result)
}

func TestAudioDeleteJobPayloadFromMap(t *testing.T) {
	data := map[string]interface{}{
		"track_id":   float64(123), // JSON numbers are float64
		"track_uuid": "test-uuid-123",
		"audio_key":  "audio/2026/01/test-uuid-123.mp3",
	}

	payload, err := AudioDeleteJobPayloadFromMap(data)
	require.NoError(t, err)

	expected := &AudioDeleteJobPayload{
		TrackID:   123,
		TrackUUID: "test-uuid-123",
		AudioKey:  "audio/2026/01/test-uuid-123.mp3",
	}

	assert.Equal(t, expected, payload)
}

func TestAudioDeleteJobPayloadFromMap_InvalidData(t *testing.T) {
	data := map[string]interface{}{
		"track_id": make(chan int), // channels can't be marshaled to JSON
	}

	payload, err := AudioDeleteJobPayloadFromMap(data)
	assert.Error(t, err)
	assert.Nil(t, payload)
}

func TestAudioDeletePayloadRoundTrip(t *testing.T) {
	original := AudioDeleteJobPayload{
		TrackID:   456,
		TrackUUID: "round-trip-test",
		AudioKey:  "audio/2026/02/round-trip-test.flac",
	}

	data := original.ToMap()
	result, err := AudioDeleteJobPayloadFromMap(data)
	require.NoError(t, err)

	assert.Equal(t, &original, result)
}

func TestJobJSONSerialization(t *testing.T) {
	now := time.Now()
	processedAt := now.Add(time.Minute)

	job := &Job{
		ID:          "test-job-123",
		Type:        JobTypeAudioDelete,
		Status:      JobStatusProcessing,
		Payload:     map[string]interface{}{"audio_key": "audio/x.mp3"},
		CreatedAt:   now,
		UpdatedAt:   now.Add(time.Second),
		ProcessedAt: &processedAt,
		RetryCount:  0,
		MaxRetries:  3,
	}

	jsonData, err := json.Marshal(job)
	require.NoError(t, err)

	var result Job
	err = json.Unmarshal(jsonData, &result)
	require.NoError(t, err)

	assert.Equal(t, job.ID, result.ID)
	assert.Equal(t, job.Type, result.Type)
	assert.Equal(t, job.Status, result.Status)
	assert.Equal(t, job.Payload, result.Payload)
	assert.Equal(t, job.RetryCount, result.RetryCount)
	assert.Equal(t, job.MaxRetries, result.MaxRetries)
}
