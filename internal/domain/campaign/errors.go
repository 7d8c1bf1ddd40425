package campaign

import (
	"errors"

	"quest-scheduler-go/internal/domain/apperr"
)

var (
	ErrCampaignNotFound    = apperr.New(apperr.KindNotFound, "campaign_not_found", "campaign not found")
	ErrMemberNotFound      = apperr.New(apperr.KindNotFound, "member_not_found", "member not found")
	ErrJoinRequestNotFound = apperr.New(apperr.KindNotFound, "join_request_not_found", "join request not found")
	ErrInviteCodeNotFound  = apperr.New(apperr.KindNotFound, "invite_code_not_found", "invite code not found")

	ErrCampaignAccessDenied = apperr.New(apperr.KindAccessDenied, "campaign_access_denied", "campaign is private")
	ErrNotOwner             = apperr.New(apperr.KindAccessDenied, "not_owner", "only the campaign owner can do this")
	ErrNotManager           = apperr.New(apperr.KindAccessDenied, "not_campaign_manager", "only the campaign owner or a GM can do this")

	ErrAlreadyMember     = apperr.New(apperr.KindDuplicate, "already_member", "already a campaign member")
	ErrJoinRequestExists = apperr.New(apperr.KindDuplicate, "join_request_pending", "join request already pending")
	ErrInviteCodeTaken   = apperr.New(apperr.KindDuplicate, "invite_code_taken", "invite code is already in use")

	ErrCannotRemoveOwner     = apperr.New(apperr.KindInvalidState, "cannot_remove_owner", "the owner cannot be removed from the campaign")
	ErrOwnerRoleImmutable    = apperr.New(apperr.KindInvalidState, "owner_role_immutable", "the owner role cannot be assigned or changed")
	ErrOwnerCannotLeave      = apperr.New(apperr.KindInvalidState, "owner_cannot_leave", "the owner must delete the campaign instead of leaving")
	ErrInviteCodeUnavailable = apperr.New(apperr.KindInvalidState, "invite_code_unavailable", "private campaigns do not accept invite codes")
	ErrJoinRequestNotPending = apperr.New(apperr.KindInvalidState, "join_request_not_pending", "join request was already reviewed")

	ErrInvalidVisibility = apperr.New(apperr.KindValidation, "invalid_visibility", "invalid visibility")
	ErrTitleRequired     = apperr.New(apperr.KindValidation, "title_required", "title is required")
	ErrInvalidMemberRole = apperr.New(apperr.KindValidation, "invalid_member_role", "member role must be GM or PLAYER")

	ErrCodeGenerationFailed = errors.New("invite code generation failed")
)
