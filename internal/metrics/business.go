package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics counts the domain events the service cares about.
type BusinessMetrics struct {
	teachersRegistered metric.Int64Counter
	studentsRegistered metric.Int64Counter
	loginsSucceeded    metric.Int64Counter
	loginsRejected     metric.Int64Counter
	classesCreated     metric.Int64Counter
	classesUpdated     metric.Int64Counter
	classesCancelled   metric.Int64Counter
	classesExpired     metric.Int64Counter
}

func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}

	var err error

	m.teachersRegistered, err = meter.Int64Counter(
		"schedule_service.teachers.registered",
		metric.WithDescription("Total number of teachers registered"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsRegistered, err = meter.Int64Counter(
		"schedule_service.students.registered",
		metric.WithDescription("Total number of students registered"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	m.loginsSucceeded, err = meter.Int64Counter(
		"schedule_service.logins.succeeded",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	m.loginsRejected, err = meter.Int64Counter(
		"schedule_service.logins.rejected",
		metric.WithDescription("Total number of rejected logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	m.classesCreated, err = meter.Int64Counter(
		"schedule_service.classes.created",
		metric.WithDescription("Total number of classes created"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	m.classesUpdated, err = meter.Int64Counter(
		"schedule_service.classes.updated",
		metric.WithDescription("Total number of classes updated"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	m.classesCancelled, err = meter.Int64Counter(
		"schedule_service.classes.cancelled",
		metric.WithDescription("Total number of classes cancelled"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	m.classesExpired, err = meter.Int64Counter(
		"schedule_service.classes.expired",
		metric.WithDescription("Total number of classes removed by the expiry sweeper"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *BusinessMetrics) RecordTeacherRegistered(ctx context.Context) {
	if m != nil && m.teachersRegistered != nil {
		m.teachersRegistered.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordStudentRegistered(ctx context.Context) {
	if m != nil && m.studentsRegistered != nil {
		m.studentsRegistered.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordLoginSucceeded(ctx context.Context) {
	if m != nil && m.loginsSucceeded != nil {
		m.loginsSucceeded.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordLoginRejected(ctx context.Context) {
	if m != nil && m.loginsRejected != nil {
		m.loginsRejected.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordClassCreated(ctx context.Context) {
	if m != nil && m.classesCreated != nil {
		m.classesCreated.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordClassUpdated(ctx context.Context) {
	if m != nil && m.classesUpdated != nil {
		m.classesUpdated.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordClassCancelled(ctx context.Context) {
	if m != nil && m.classesCancelled != nil {
		m.classesCancelled.Add(ctx, 1)
	}
}

func (m *BusinessMetrics) RecordClassesExpired(ctx context.Context, count int64) {
	if m != nil && m.classesExpired != nil && count > 0 {
		m.classesExpired.Add(ctx, count)
	}
}
