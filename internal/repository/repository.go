package repository

import (
	"foodorder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// byRef 按 AccountRef 的键分支拼查询条件
// 【关键点】已关联本地账号只查 account_id，否则只查 external_subject_id，
// 两个键绝不同时出现在 WHERE 里，否则迁移中的账户会查错行
func byRef(db *gorm.DB, ref model.AccountRef) *gorm.DB {
	if ref.HasLegacyAccount {
		return db.Where("account_id = ?", ref.AccountID)
	}
	return db.Where("external_subject_id = ?", ref.ExternalSubjectID)
}

// forUpdate 给查询加排他行锁
// sqlite 不支持 SELECT ... FOR UPDATE，单元测试用内存 sqlite 且单写入者，跳过
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
