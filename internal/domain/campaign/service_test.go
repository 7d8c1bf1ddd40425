package campaign_test

import (
	"context"
	"errors"
	"testing"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/apperr"
	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/notify"
	"quest-scheduler-go/internal/repository/inmemory"
)

type fixture struct {
	svc      *campaign.Service
	repo     *inmemory.CampaignRepository
	recorder *notify.Recorder
}

func newFixture(t *testing.T, opts ...campaign.Option) fixture {
	t.Helper()
	repo := inmemory.NewCampaignRepository(inmemory.NewStore())
	recorder := &notify.Recorder{}
	opts = append([]campaign.Option{campaign.WithNotifier(recorder)}, opts...)
	return fixture{svc: campaign.NewService(repo, opts...), repo: repo, recorder: recorder}
}

func (f fixture) create(t *testing.T, owner string, visibility campaign.Visibility) *campaign.Campaign {
	t.Helper()
	created, err := f.svc.CreateCampaign(context.Background(), campaign.CreateCampaignInput{
		OwnerID:    owner,
		Title:      "Tomb of Annihilation",
		System:     "D&D 5e",
		Visibility: visibility,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return created
}

func assertSingleOwner(t *testing.T, repo *inmemory.CampaignRepository, c *campaign.Campaign) {
	t.Helper()
	members, err := repo.ListMembers(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	owners := 0
	for _, member := range members {
		if member.Role == access.RoleOwner {
			owners++
			if member.UserID != c.OwnerID {
				t.Fatalf("owner row %s does not match campaign owner %s", member.UserID, c.OwnerID)
			}
		}
	}
	if owners != 1 {
		t.Fatalf("expected exactly one owner row, got %d", owners)
	}
}

func TestCreateCampaignAddsOwnerMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "u1", "")
	if created.Visibility != campaign.VisibilityPublic {
		t.Fatalf("expected default PUBLIC visibility, got %s", created.Visibility)
	}
	if created.InviteCode != nil {
		t.Fatalf("public campaigns get no invite code")
	}
	assertSingleOwner(t, f.repo, created)

	details, err := f.svc.GetCampaign(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if details.ViewerRole != access.RoleOwner || details.MemberCount != 1 {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCampaign(ctx, campaign.CreateCampaignInput{OwnerID: "u1", Title: "  "})
	if !errors.Is(err, campaign.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	_, err = f.svc.CreateCampaign(ctx, campaign.CreateCampaignInput{OwnerID: "u1", Title: "x", Visibility: "SECRET"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLinkOnlyCampaignGetsInviteCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "u1", campaign.VisibilityLinkOnly)
	if created.InviteCode == nil || len(*created.InviteCode) != 16 {
		t.Fatalf("expected a 16 character invite code, got %v", created.InviteCode)
	}

	details, err := f.svc.GetCampaign(ctx, created.ID, "stranger")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if details.Campaign.InviteCode != nil {
		t.Fatalf("invite code must be hidden from non-managers")
	}

	member, err := f.svc.JoinByInviteCode(ctx, "  "+*created.InviteCode+" ", "u2")
	if err != nil {
		t.Fatalf("join by code: %v", err)
	}
	if member.Role != access.RolePlayer {
		t.Fatalf("expected PLAYER, got %s", member.Role)
	}

	if _, err := f.svc.JoinByInviteCode(ctx, *created.InviteCode, "u2"); !errors.Is(err, campaign.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if _, err := f.svc.JoinByInviteCode(ctx, "deadbeefdeadbeef", "u3"); !errors.Is(err, campaign.ErrInviteCodeNotFound) {
		t.Fatalf("expected ErrInviteCodeNotFound, got %v", err)
	}
}

func TestRegenerateInviteCodeInvalidatesOldCode(t *testing.T) {
	codes := []string{"aaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb"}
	f := newFixture(t, campaign.WithInviteCodeGenerator(func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}))
	ctx := context.Background()

	created := f.create(t, "u1", campaign.VisibilityLinkOnly)

	if _, err := f.svc.RegenerateInviteCode(ctx, created.ID, "u2"); !errors.Is(err, campaign.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	code, err := f.svc.RegenerateInviteCode(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if code != "bbbbbbbbbbbbbbbb" {
		t.Fatalf("expected collision to be retried, got %s", code)
	}
	if _, err := f.svc.JoinByInviteCode(ctx, "aaaaaaaaaaaaaaaa", "u2"); !errors.Is(err, campaign.ErrInviteCodeNotFound) {
		t.Fatalf("expected old code to stop working, got %v", err)
	}
}

func TestPrivateCampaignRejectsInviteCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "u1", campaign.VisibilityLinkOnly)
	staleCode := *created.InviteCode

	private := campaign.VisibilityPrivate
	if _, err := f.svc.UpdateCampaign(ctx, campaign.UpdateCampaignInput{CampaignID: created.ID, ActingUserID: "u1", Visibility: &private}); err != nil {
		t.Fatalf("make private: %v", err)
	}

	if _, err := f.svc.JoinByInviteCode(ctx, staleCode, "u2"); !errors.Is(err, campaign.ErrInviteCodeUnavailable) {
		t.Fatalf("expected ErrInviteCodeUnavailable for stale code, got %v", err)
	}
	if _, err := f.repo.GetMember(ctx, created.ID, "u2"); !errors.Is(err, campaign.ErrMemberNotFound) {
		t.Fatalf("expected no membership for u2, got %v", err)
	}
	if _, err := f.svc.RegenerateInviteCode(ctx, created.ID, "u1"); !errors.Is(err, campaign.ErrInviteCodeUnavailable) {
		t.Fatalf("expected ErrInviteCodeUnavailable on regenerate, got %v", err)
	}
	assertSingleOwner(t, f.repo, created)
}

func TestSubmitJoinRequestPublicJoinsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPublic)

	outcome, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "hi")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Joined() || outcome.Request != nil {
		t.Fatalf("expected direct membership, got %+v", outcome)
	}
	if outcome.Member.Role != access.RolePlayer {
		t.Fatalf("expected PLAYER, got %s", outcome.Member.Role)
	}

	requests, err := f.repo.ListJoinRequests(ctx, created.ID, "")
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("expected no join request rows, got %d", len(requests))
	}
	if len(f.recorder.JoinRequests) != 0 {
		t.Fatalf("expected no notification for a direct join")
	}
}

func TestPrivateJoinRequestApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPrivate)

	if _, err := f.svc.GetCampaign(ctx, created.ID, "u2"); !errors.Is(err, campaign.ErrCampaignAccessDenied) {
		t.Fatalf("expected access denied for a non-member, got %v", err)
	}

	outcome, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "let me in")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Joined() || outcome.Request == nil || outcome.Request.Status != campaign.JoinRequestPending {
		t.Fatalf("expected pending request, got %+v", outcome)
	}
	if len(f.recorder.JoinRequests) != 1 || f.recorder.JoinRequests[0].OwnerID != "u1" {
		t.Fatalf("expected owner notification, got %+v", f.recorder.JoinRequests)
	}

	if _, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "again"); !errors.Is(err, campaign.ErrJoinRequestExists) {
		t.Fatalf("expected ErrJoinRequestExists, got %v", err)
	}
	if _, err := f.svc.ApproveJoinRequest(ctx, outcome.Request.ID, "u3", ""); !errors.Is(err, campaign.ErrNotManager) {
		t.Fatalf("expected ErrNotManager, got %v", err)
	}

	member, err := f.svc.ApproveJoinRequest(ctx, outcome.Request.ID, "u1", access.RolePlayer)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if member.UserID != "u2" || member.Role != access.RolePlayer {
		t.Fatalf("unexpected member %+v", member)
	}

	request, err := f.repo.GetJoinRequest(ctx, outcome.Request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if request.Status != campaign.JoinRequestApproved || request.ReviewedBy == nil || *request.ReviewedBy != "u1" {
		t.Fatalf("expected approved request reviewed by u1, got %+v", request)
	}

	details, err := f.svc.GetCampaign(ctx, created.ID, "u2")
	if err != nil {
		t.Fatalf("member should see the campaign: %v", err)
	}
	if details.ViewerRole != access.RolePlayer {
		t.Fatalf("expected PLAYER, got %s", details.ViewerRole)
	}
}

func TestApproveJoinRequestTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPrivate)

	outcome, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.ApproveJoinRequest(ctx, outcome.Request.ID, "u1", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.svc.ApproveJoinRequest(ctx, outcome.Request.ID, "u1", "")
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state on second approval, got %v", err)
	}

	members, err := f.repo.ListMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected owner plus one member, got %d", len(members))
	}
}

func TestRejectedJoinRequestIsReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPrivate)

	first, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "first")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rejected, err := f.svc.RejectJoinRequest(ctx, first.Request.ID, "u1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != campaign.JoinRequestRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}

	second, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", "second")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.Request.ID != first.Request.ID {
		t.Fatalf("expected row %s to be reused, got %s", first.Request.ID, second.Request.ID)
	}
	if second.Request.Status != campaign.JoinRequestPending || second.Request.ReviewedAt != nil {
		t.Fatalf("expected a fresh pending request, got %+v", second.Request)
	}

	requests, err := f.svc.ListJoinRequests(ctx, created.ID, "u1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected a single row, got %d", len(requests))
	}
}

func TestOwnerCannotBeRemovedOrDemoted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPublic)

	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "gm", access.RoleGM); err != nil {
		t.Fatalf("add gm: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "u3", access.RoleOwner); !errors.Is(err, campaign.ErrOwnerRoleImmutable) {
		t.Fatalf("expected ErrOwnerRoleImmutable, got %v", err)
	}

	if err := f.svc.RemoveMember(ctx, created.ID, "gm", "u1"); !errors.Is(err, campaign.ErrCannotRemoveOwner) {
		t.Fatalf("expected ErrCannotRemoveOwner, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, created.ID, "u1", "u1"); !errors.Is(err, campaign.ErrCannotRemoveOwner) {
		t.Fatalf("expected ErrCannotRemoveOwner for self removal, got %v", err)
	}
	if _, err := f.svc.UpdateMemberRole(ctx, created.ID, "u1", "u1", access.RolePlayer); !errors.Is(err, campaign.ErrOwnerRoleImmutable) {
		t.Fatalf("expected ErrOwnerRoleImmutable, got %v", err)
	}
	if _, err := f.svc.UpdateMemberRole(ctx, created.ID, "u1", "gm", access.RoleOwner); !errors.Is(err, campaign.ErrOwnerRoleImmutable) {
		t.Fatalf("expected ErrOwnerRoleImmutable, got %v", err)
	}
	if err := f.svc.LeaveCampaign(ctx, created.ID, "u1"); !errors.Is(err, campaign.ErrOwnerCannotLeave) {
		t.Fatalf("expected ErrOwnerCannotLeave, got %v", err)
	}

	assertSingleOwner(t, f.repo, created)
}

func TestMemberManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPublic)

	if _, err := f.svc.AddMember(ctx, created.ID, "u2", "u3", access.RolePlayer); !errors.Is(err, campaign.ErrNotManager) {
		t.Fatalf("expected ErrNotManager, got %v", err)
	}
	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "", access.RolePlayer); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "gm", access.RoleGM); err != nil {
		t.Fatalf("add gm: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, created.ID, "gm", "u2", access.RolePlayer); err != nil {
		t.Fatalf("gm adds player: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, created.ID, "gm", "u2", access.RolePlayer); !errors.Is(err, campaign.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	if _, err := f.svc.UpdateMemberRole(ctx, created.ID, "gm", "u2", access.RoleGM); !errors.Is(err, campaign.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	promoted, err := f.svc.UpdateMemberRole(ctx, created.ID, "u1", "u2", access.RoleGM)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Role != access.RoleGM {
		t.Fatalf("expected GM, got %s", promoted.Role)
	}

	// A GM may remove another GM.
	if err := f.svc.RemoveMember(ctx, created.ID, "gm", "u2"); err != nil {
		t.Fatalf("gm removes gm: %v", err)
	}
	if err := f.svc.RemoveMember(ctx, created.ID, "gm", "u2"); !errors.Is(err, campaign.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	if err := f.svc.LeaveCampaign(ctx, created.ID, "gm"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	members, err := f.svc.ListMembers(ctx, created.ID, "")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected only the owner to remain, got %d", len(members))
	}
}

func TestUpdateCampaignPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPrivate)
	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "gm", access.RoleGM); err != nil {
		t.Fatalf("add gm: %v", err)
	}

	title := "Renamed"
	updated, err := f.svc.UpdateCampaign(ctx, campaign.UpdateCampaignInput{CampaignID: created.ID, ActingUserID: "gm", Title: &title})
	if err != nil {
		t.Fatalf("gm update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("expected title to change, got %s", updated.Title)
	}

	linkOnly := campaign.VisibilityLinkOnly
	_, err = f.svc.UpdateCampaign(ctx, campaign.UpdateCampaignInput{CampaignID: created.ID, ActingUserID: "gm", Visibility: &linkOnly})
	if !errors.Is(err, campaign.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for visibility change by gm, got %v", err)
	}

	updated, err = f.svc.UpdateCampaign(ctx, campaign.UpdateCampaignInput{CampaignID: created.ID, ActingUserID: "u1", Visibility: &linkOnly})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.InviteCode == nil {
		t.Fatalf("expected an invite code once LINK_ONLY")
	}

	_, err = f.svc.UpdateCampaign(ctx, campaign.UpdateCampaignInput{CampaignID: created.ID, ActingUserID: "u9", Title: &title})
	if !errors.Is(err, campaign.ErrNotManager) {
		t.Fatalf("expected ErrNotManager, got %v", err)
	}
}

func TestDeleteCampaignOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPublic)
	if _, err := f.svc.AddMember(ctx, created.ID, "u1", "gm", access.RoleGM); err != nil {
		t.Fatalf("add gm: %v", err)
	}

	if err := f.svc.DeleteCampaign(ctx, created.ID, "gm"); !errors.Is(err, campaign.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := f.svc.DeleteCampaign(ctx, created.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetCampaign(ctx, created.ID, "u1"); !errors.Is(err, campaign.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	memberships, err := f.svc.ListMyCampaigns(ctx, "gm", campaign.RoleFilterAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(memberships) != 0 {
		t.Fatalf("expected memberships to cascade, got %d", len(memberships))
	}
}

func TestListMyCampaignsRoleFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owned := f.create(t, "u1", campaign.VisibilityLinkOnly)
	other := f.create(t, "u2", campaign.VisibilityPublic)
	if _, err := f.svc.SubmitJoinRequest(ctx, other.ID, "u1", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	all, err := f.svc.ListMyCampaigns(ctx, "u1", campaign.RoleFilterAll)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(all))
	}

	mine, err := f.svc.ListMyCampaigns(ctx, "u1", campaign.RoleFilterOwner)
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(mine) != 1 || mine[0].Campaign.ID != owned.ID || mine[0].Role != access.RoleOwner {
		t.Fatalf("unexpected owner list %+v", mine)
	}
	if mine[0].Campaign.InviteCode == nil {
		t.Fatalf("owner should see the invite code")
	}

	joined, err := f.svc.ListMyCampaigns(ctx, "u1", campaign.RoleFilterMember)
	if err != nil {
		t.Fatalf("list member: %v", err)
	}
	if len(joined) != 1 || joined[0].Campaign.ID != other.ID || joined[0].Role != access.RolePlayer {
		t.Fatalf("unexpected member list %+v", joined)
	}
}

func TestListJoinRequestsRequiresManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, "u1", campaign.VisibilityPrivate)
	if _, err := f.svc.SubmitJoinRequest(ctx, created.ID, "u2", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.ListJoinRequests(ctx, created.ID, "u2", ""); !errors.Is(err, campaign.ErrNotManager) {
		t.Fatalf("expected ErrNotManager, got %v", err)
	}
	if _, err := f.svc.ListJoinRequests(ctx, created.ID, "u1", "MAYBE"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	pending, err := f.svc.ListJoinRequests(ctx, created.ID, "u1", campaign.JoinRequestPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}

	details, err := f.svc.GetCampaign(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(details.PendingRequests) != 1 {
		t.Fatalf("expected pending requests in owner view, got %d", len(details.PendingRequests))
	}
}
