package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHealthCheck_PingOK(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	if err := HealthCheck(context.Background(), db, time.Second); err != nil {
		t.Fatalf("expected ping ok, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHealthCheck_WrapsPingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(boom)
	err = HealthCheck(context.Background(), db, time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped ping error, got %v", err)
	}
}

func TestPoolDefaults(t *testing.T) {
	p := PostgresPoolConfig{MaxOpenConns: 10}.withDefaults()
	if p.MaxOpenConns != 10 || p.MaxIdleConns != 2 || p.PingTimeout != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}
