package config

type WorkerKeyStruct struct {
	NotificationQueue     string
	NotificationDeadQueue string
}

var WorkerKey = &WorkerKeyStruct{
	NotificationQueue:     "notification_jobs_queue",
	NotificationDeadQueue: "notification_jobs_dead",
}
