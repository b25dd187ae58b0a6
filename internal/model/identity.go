package model

// ============================================================================
// 账户引用（积分账本的唯一键）
// ============================================================================
//
// 【为什么需要 AccountRef？】
//
// 系统里同时存在两套顾客身份：
//   1. 老账号体系：本地 account 表的自增 ID
//   2. 外部身份提供方：provider 签发的 subject ID（可能还没关联到本地账号）
//
// 积分余额行要么以 account_id 为键，要么以 external_subject_id 为键，
// 如果每个调用方各自判断"这是老账号还是外部身份"，很容易查错键导致余额分裂。
//
// 因此身份解析只在 IdentityService 做一次，产出 AccountRef，
// 账本的所有接口只接受 AccountRef，绝不接受原始凭证。
// ============================================================================

// AccountRef 解析后的账户引用
// HasLegacyAccount=true 时以 AccountID 为账本键，否则以 ExternalSubjectID 为键
type AccountRef struct {
	AccountID         int64  `json:"account_id,omitempty"`
	ExternalSubjectID string `json:"external_subject_id,omitempty"`
	HasLegacyAccount  bool   `json:"has_legacy_account"`
}

// LegacyAccountRef 老账号引用
func LegacyAccountRef(accountID int64) AccountRef {
	return AccountRef{AccountID: accountID, HasLegacyAccount: true}
}

// ExternalAccountRef 仅有外部身份、尚未关联本地账号的引用
func ExternalAccountRef(subjectID string) AccountRef {
	return AccountRef{ExternalSubjectID: subjectID, HasLegacyAccount: false}
}

// LinkedAccountRef 已关联两套身份的引用，账本仍以本地账号 ID 为键
func LinkedAccountRef(accountID int64, subjectID string) AccountRef {
	return AccountRef{AccountID: accountID, ExternalSubjectID: subjectID, HasLegacyAccount: true}
}

// IsGuest 未携带任何身份（游客），不允许访问账本
func (r AccountRef) IsGuest() bool {
	return !r.HasLegacyAccount && r.ExternalSubjectID == ""
}

// LedgerKeys 返回落库用的键列，按分支恰好一个非 nil
func (r AccountRef) LedgerKeys() (accountID *int64, subjectID *string) {
	if r.HasLegacyAccount {
		id := r.AccountID
		return &id, nil
	}
	sid := r.ExternalSubjectID
	return nil, &sid
}

// Credential 认证协作方校验通过后的身份凭证
// 二选一：老账号会话携带 AccountID；外部身份携带 SubjectID + Email
type Credential struct {
	AccountID int64  // 老账号 ID，>0 有效
	SubjectID string // 身份提供方 subject
	Email     string
	Role      string
}

func (c Credential) IsLegacy() bool {
	return c.AccountID > 0
}

func (c Credential) IsExternal() bool {
	return c.SubjectID != ""
}
