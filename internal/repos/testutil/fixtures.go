package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
)

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *domain.Job {
	tb.Helper()
	j := &domain.Job{
		ID:          uuid.New(),
		Title:       title,
		JDText:      "We are hiring a " + title + " with Go and PostgreSQL experience.",
		RoutingMode: domain.RoutingAuto,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedCandidate(tb testing.TB, ctx context.Context, tx *gorm.DB, providerID, name string) *domain.Candidate {
	tb.Helper()
	c := &domain.Candidate{
		ID:         uuid.New(),
		ProviderID: providerID,
		FullName:   name,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	c.SetLanguages([]string{"en"})
	c.SetSkills([]string{"go", "postgresql"})
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed candidate: %v", err)
	}
	return c
}

func SeedMatch(tb testing.TB, ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID, score float64, status domain.MatchStatus) *domain.Match {
	tb.Helper()
	m := &domain.Match{
		ID:          uuid.New(),
		JobID:       jobID,
		CandidateID: candidateID,
		Score:       score,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed match: %v", err)
	}
	return m
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) *domain.Conversation {
	tb.Helper()
	c := &domain.Conversation{
		ID:          uuid.New(),
		JobID:       jobID,
		CandidateID: candidateID,
		Channel:     "linkedin",
		Status:      domain.ConversationActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, providerAccountID string, status domain.SenderAccountStatus, connectedAt time.Time) *domain.SenderAccount {
	tb.Helper()
	a := &domain.SenderAccount{
		ID:                uuid.New(),
		ProviderAccountID: providerAccountID,
		Status:            status,
		ConnectedAt:       &connectedAt,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return a
}
