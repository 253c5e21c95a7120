package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{(Transaction{}).TableName(), "transactions"},
		{(Dispute{}).TableName(), "disputes"},
		{(Representment{}).TableName(), "representments"},
		{(EvidenceRequest{}).TableName(), "evidence_requests"},
		{(CustomerEvidence{}).TableName(), "customer_evidence"},
		{(Conversation{}).TableName(), "conversations"},
		{(Message{}).TableName(), "messages"},
		{(ChargebackAction{}).TableName(), "chargeback_actions"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("TableName() = %q; want %q", tc.got, tc.want)
		}
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(
		&Transaction{}, &Dispute{}, &Representment{}, &EvidenceRequest{},
		&CustomerEvidence{}, &Conversation{}, &Message{}, &ChargebackAction{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	// Tables exist
	for _, tbl := range []any{
		&Transaction{}, &Dispute{}, &Representment{}, &EvidenceRequest{},
		&CustomerEvidence{}, &Conversation{}, &Message{}, &ChargebackAction{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Indexes from tags exist
	if !m.HasIndex(&Transaction{}, "idx_user_txns") {
		t.Fatalf("expected index idx_user_txns on transactions")
	}
	if !m.HasIndex(&Conversation{}, "idx_user_conversations") {
		t.Fatalf("expected index idx_user_conversations on conversations")
	}
	if !m.HasIndex(&Message{}, "idx_conv_msgs") {
		t.Fatalf("expected index idx_conv_msgs on messages")
	}
	if !m.HasIndex(&Representment{}, "idx_txn_representments") {
		t.Fatalf("expected index idx_txn_representments on representments")
	}
	if !m.HasIndex(&ChargebackAction{}, "idx_txn_actions") {
		t.Fatalf("expected index idx_txn_actions on chargeback_actions")
	}

	// Seed a transaction with a dispute, and a conversation with two messages
	now := time.Now().UTC()

	txn := &Transaction{
		ID: "t1", UserID: "u1", Amount: 42, Currency: "EUR",
		MerchantName: "ACME", TransactionAt: now, CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	d := &Dispute{
		ID: "d1", TransactionID: "t1", UserID: "u1",
		Status: DisputeOpen, CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("insert dispute: %v", err)
	}

	conv := &Conversation{ID: "c1", UserID: "u1", Title: "T", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("insert conversation: %v", err)
	}
	m1 := &Message{ID: "m1", ConversationID: "c1", Role: "user", Content: "hello", CreatedAt: now, UpdatedAt: now}
	m2 := &Message{ID: "m2", ConversationID: "c1", Role: "assistant", Content: "world", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)}
	if err := db.Create(m1).Error; err != nil {
		t.Fatalf("insert m1: %v", err)
	}
	if err := db.Create(m2).Error; err != nil {
		t.Fatalf("insert m2: %v", err)
	}

	// CASCADE: hard-deleting the conversation should delete its messages
	if err := db.Unscoped().Delete(&Conversation{}, "id = ?", "c1").Error; err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	var cnt int64
	if err := db.Unscoped().Model(&Message{}).Where("conversation_id = ?", "c1").Count(&cnt).Error; err != nil {
		t.Fatalf("count messages after conversation delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected messages to cascade-delete when conversation deleted, got count=%d", cnt)
	}

	// CASCADE: hard-deleting the transaction should delete its dispute
	if err := db.Unscoped().Delete(&Transaction{}, "id = ?", "t1").Error; err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := db.Unscoped().Model(&Dispute{}).Where("transaction_id = ?", "t1").Count(&cnt).Error; err != nil {
		t.Fatalf("count disputes after transaction delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected disputes to cascade-delete when transaction deleted, got count=%d", cnt)
	}
}

func TestMessage_RoleCheckConstraint(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	if err := db.Create(&Conversation{ID: "c1", UserID: "u1", Title: "T", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert conversation: %v", err)
	}

	bad := &Message{ID: "m1", ConversationID: "c1", Role: "system", Content: "x", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for role %q", bad.Role)
	}
}
