package repository

import (
	"strings"
	"testing"

	"github.com/partnerhub/internal/models"
)

func TestLikeOperator(t *testing.T) {
	if got := likeOperator("postgres"); got != "ILIKE" {
		t.Fatalf("postgres operator want ILIKE got %s", got)
	}
	if got := likeOperator("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite operator want LIKE got %s", got)
	}
}

func TestLikeClauseSkipsBlankColumns(t *testing.T) {
	clause, args := likeClause("sqlite", "ann", []string{"partner_code", " ", "full_name"})
	if len(args) != 2 {
		t.Fatalf("arg count want 2 got %d", len(args))
	}
	if !strings.Contains(clause, "partner_code LIKE ?") || !strings.Contains(clause, "full_name LIKE ?") {
		t.Fatalf("unexpected clause %s", clause)
	}
	if args[0] != "%ann%" {
		t.Fatalf("unexpected pattern %v", args[0])
	}

	if clause, args := likeClause("sqlite", "ann", []string{" "}); clause != "" || args != nil {
		t.Fatalf("no columns should produce empty clause, got %q %v", clause, args)
	}
}

func TestLikeClauseEscapesWildcards(t *testing.T) {
	clause, args := likeClause("postgres", "50%_off", []string{"invoice_code"})
	if !strings.HasPrefix(clause, "(invoice_code ILIKE ?") {
		t.Fatalf("unexpected clause %s", clause)
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("wildcards should be escaped, got %v", args[0])
	}
}

func TestApplyLikeSearchMatchesLiterally(t *testing.T) {
	_, db := setupCommissionRepositoryTest(t)
	for _, p := range []models.Partner{
		{PartnerCode: "F0A1", FullName: "100% Ann"},
		{PartnerCode: "F0A2", FullName: "100 Bob"},
	} {
		p := p
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("create partner failed: %v", err)
		}
	}

	var got []models.Partner
	if err := applyLikeSearch(db.Model(&models.Partner{}), "100%", "full_name").Find(&got).Error; err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].PartnerCode != "F0A1" {
		t.Fatalf("literal percent should match one partner, got %+v", got)
	}

	var all []models.Partner
	if err := applyLikeSearch(db.Model(&models.Partner{}), "  ", "full_name").Find(&all).Error; err != nil {
		t.Fatalf("blank search failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("blank keyword should not filter, got %d", len(all))
	}
}
