package model

// Job is a unit of GPU work moving through the pending/running/completed
// queues. AssignedServers is empty iff Status is one of
// {queued, completed, failed, preempted}.
type Job struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            JobType   `json:"type"`
	GPUsRequired    int       `json:"gpus_required"`
	Priority        int       `json:"priority"` // 1-5, higher is more urgent
	DurationS       float64   `json:"duration_s"`
	SubmittedAt     float64   `json:"submitted_at"`
	StartedAt       *float64  `json:"started_at,omitempty"`
	CompletedAt     *float64  `json:"completed_at,omitempty"`
	AssignedServers []string  `json:"assigned_servers"`
	// ServerAllocations records exactly how many of GPUsRequired sit on each
	// assigned server, since placement and migration may split a job's GPUs
	// unevenly across servers; freeing must restore the same per-server
	// amounts it took.
	ServerAllocations map[string]int `json:"server_allocations,omitempty"`
	TargetUtil        float64        `json:"target_util"`
	SLADeadlineS      float64        `json:"sla_deadline_s"`
	Status            JobStatus      `json:"status"`
	SLAViolated       bool           `json:"sla_violated"`
}

// QueueWaitS returns how long the job has waited since submission, given
// the current simulated time. Meaningless once the job has started.
func (j *Job) QueueWaitS(currentTime float64) float64 {
	return currentTime - j.SubmittedAt
}

// IsRunning reports whether the job currently holds GPU slots.
func (j *Job) IsRunning() bool {
	return j.Status == JobRunning
}

// JobSummary is the condensed per-job view carried in FacilityState and the
// workload/{queue,running,completed} endpoints.
type JobSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            JobType   `json:"type"`
	GPUsRequired    int       `json:"gpus_required"`
	Priority        int       `json:"priority"`
	Status          JobStatus `json:"status"`
	SubmittedAt     float64   `json:"submitted_at"`
	StartedAt       *float64  `json:"started_at,omitempty"`
	CompletedAt     *float64  `json:"completed_at,omitempty"`
	AssignedServers []string  `json:"assigned_servers,omitempty"`
	SLAViolated     bool      `json:"sla_violated"`
}

// Summary converts a Job into its condensed wire form.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:              j.ID,
		Name:            j.Name,
		Type:            j.Type,
		GPUsRequired:    j.GPUsRequired,
		Priority:        j.Priority,
		Status:          j.Status,
		SubmittedAt:     j.SubmittedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		AssignedServers: append([]string(nil), j.AssignedServers...),
		SLAViolated:     j.SLAViolated,
	}
}
