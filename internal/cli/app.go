package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lumela/huecircle/internal/circle"
	"github.com/lumela/huecircle/internal/consent"
	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/invites"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/selftest"
	"github.com/lumela/huecircle/internal/storage"
)

// App is the interactive shell. It drives any number of local personas
// (named local users) against one store, which makes the two-party
// invite handshake walkable from a single terminal.
type App struct {
	circle    *circle.Service
	invites   *invites.Service
	store     *storage.Store
	directory *consent.Static
	log       logging.Logger

	in     *bufio.Reader
	out    io.Writer
	scheme string

	personas map[string]identity.CircleID
	current  string
}

func NewApp(c *circle.Service, inv *invites.Service, st *storage.Store, dir *consent.Static, log logging.Logger, scheme string, in io.Reader, out io.Writer) *App {
	if scheme == "" {
		scheme = invites.DefaultScheme
	}
	if dir.Names == nil {
		dir.Names = make(map[identity.CircleID]string)
	}
	return &App{
		circle:    c,
		invites:   inv,
		store:     st,
		directory: dir,
		log:       log,
		in:        bufio.NewReader(in),
		out:       out,
		scheme:    scheme,
		personas:  make(map[string]identity.CircleID),
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// me returns the acting persona's user id.
func (a *App) me() (identity.CircleID, error) {
	if a.current == "" {
		return "", errors.New("no active persona, run: init <name>")
	}
	return a.personas[a.current], nil
}

// Run reads commands line by line until exit or EOF.
func (a *App) Run(ctx context.Context) error {
	a.printf("huecircle shell. Type 'help' for commands.")
	for {
		fmt.Fprintf(a.out, "%s> ", a.current)
		line, err := a.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if err := a.dispatch(ctx, fields[0], fields[1:]); err != nil {
			var vio *laws.Violation
			if errors.As(err, &vio) {
				// Invariant violations are bugs, not user errors.
				return fmt.Errorf("fatal: %w", vio)
			}
			a.printf("error: %v", err)
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		return a.cmdHelp()
	case "init":
		return a.cmdInit(ctx, args)
	case "persona":
		return a.cmdPersona(args)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "invite":
		return a.cmdInvite(ctx, args)
	case "extend":
		return a.cmdExtend(ctx, args)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "redeem":
		return a.cmdRedeem(ctx)
	case "redeemlink":
		return a.cmdRedeemLink(ctx, args)
	case "outcome":
		return a.cmdOutcome(ctx, args)
	case "pending":
		return a.cmdPending(ctx)
	case "confirm":
		return a.cmdConfirm(ctx, args)
	case "reject":
		return a.cmdReject(ctx, args)
	case "connections":
		return a.cmdConnections(ctx)
	case "revoke":
		return a.cmdRevoke(ctx, args)
	case "block":
		return a.cmdBlock(ctx, args)
	case "unblock":
		return a.cmdUnblock(ctx, args)
	case "signal":
		return a.cmdSignal(ctx, args)
	case "clear":
		return a.cmdClear(ctx)
	case "signals":
		return a.cmdSignals(ctx)
	case "cleanup":
		return a.cmdCleanup(ctx)
	case "sweep":
		return a.cmdSweep(ctx)
	case "summary":
		return a.cmdSummary(ctx)
	case "audit":
		return a.cmdAudit(ctx)
	case "integrity":
		return a.cmdIntegrity(ctx)
	case "selftest":
		return a.cmdSelftest()
	case "wipe":
		return a.cmdWipe(ctx)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (a *App) cmdHelp() error {
	a.printf(`personas:
  init <name> [display]   create a local user and switch to it
  persona <name>          switch acting persona
  whoami                  show acting persona
invites:
  invite                  create an invite (prints code, PIN, link)
  extend <token>          extend a pending invite once by 30m
  cancel <token>          revoke a pending invite
  redeem                  redeem by display code (prompts code, PIN, label)
  redeemlink <link>       redeem by deep link (prompts PIN, label)
  outcome <token>         redeemer-side handshake outcome
  pending                 list redemptions awaiting confirmation
  confirm <inviteId>      confirm a pending redemption
  reject <inviteId>       reject a pending redemption
circle:
  connections             list active connections
  revoke <connId>         end a connection
  block <connId>          end a connection and block the peer
  unblock <circleId>      lift a block
signals:
  signal <color> [mins]   set my signal (cyan|amber|red)
  clear                   clear my signal
  signals                 what my circle shows me
maintenance:
  cleanup sweep summary audit integrity selftest wipe
  exit`)
	return nil
}

func (a *App) cmdInit(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: init <name> [display name]")
	}
	name := args[0]
	display := name
	if len(args) > 1 {
		display = strings.Join(args[1:], " ")
	}
	user, err := a.circle.CreateLocalUser(ctx, display)
	if err != nil {
		return err
	}
	a.personas[name] = user.ID
	a.directory.Names[user.ID] = display
	a.current = name
	a.printf("persona %q ready (%s)", name, user.ID)
	return nil
}

func (a *App) cmdPersona(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: persona <name>")
	}
	if _, ok := a.personas[args[0]]; !ok {
		return fmt.Errorf("unknown persona %q", args[0])
	}
	a.current = args[0]
	return nil
}

func (a *App) cmdWhoami(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	user, err := a.circle.LocalUser(ctx, me)
	if err != nil {
		return err
	}
	a.printf("%s (%s)", user.DisplayHint, user.ID)
	return nil
}

func (a *App) cmdInvite(ctx context.Context, _ []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	creds, err := a.invites.Create(ctx, me)
	if err != nil {
		return err
	}
	a.printf("invite %s", creds.Token)
	a.printf("  code: %s  pin: %s", creds.DisplayCode, creds.PIN)
	a.printf("  link: %s", invites.BuildLink(a.scheme, creds.Token, creds.SecretToken))
	a.printf("  expires: %s", creds.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (a *App) cmdExtend(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: extend <token>")
	}
	inv, err := a.invites.Extend(ctx, me, identity.InviteToken(args[0]))
	if err != nil {
		return err
	}
	a.printf("extended, now expires %s", inv.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (a *App) cmdCancel(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: cancel <token>")
	}
	return a.invites.Revoke(ctx, me, identity.InviteToken(args[0]))
}

func (a *App) cmdRedeem(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	code, err := getSimpleText(a.in, "Enter display code:", a.out)
	if err != nil {
		return err
	}
	pin, err := getPIN(a.out)
	if err != nil {
		return err
	}
	label, err := getSimpleText(a.in, "How should they see you? (optional label)", a.out)
	if err != nil {
		return err
	}
	inv, err := a.invites.RedeemByCode(ctx, me, code, pin, label)
	if err != nil {
		return err
	}
	a.printf("redeemed %s, waiting for the creator to confirm", inv.Token)
	return nil
}

func (a *App) cmdRedeemLink(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: redeemlink <link>")
	}
	label, err := getSimpleText(a.in, "How should they see you? (optional label)", a.out)
	if err != nil {
		return err
	}
	inv, err := a.invites.RedeemByLink(ctx, me, a.scheme, args[0], label)
	if err != nil {
		return err
	}
	a.printf("redeemed %s, waiting for the creator to confirm", inv.Token)
	return nil
}

func (a *App) cmdOutcome(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: outcome <token>")
	}
	if err := a.invites.HandshakeOutcome(ctx, me, identity.InviteToken(args[0])); err != nil {
		return err
	}
	a.printf("confirmed")
	return nil
}

func (a *App) cmdPending(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	pending, err := a.invites.ListPendingConfirmations(ctx, me)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.printf("nothing awaiting confirmation")
		return nil
	}
	for _, p := range pending {
		label := p.HandshakeLabel
		if label == "" {
			label = "(no label)"
		}
		a.printf("%s  %s", p.InviteID, label)
	}
	return nil
}

func (a *App) cmdConfirm(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: confirm <inviteId>")
	}
	res, err := a.invites.Confirm(ctx, me, identity.InviteToken(args[0]))
	if err != nil {
		return err
	}
	a.printf("connected: %s", res.ConnectionID)
	return nil
}

func (a *App) cmdReject(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: reject <inviteId>")
	}
	return a.invites.Reject(ctx, me, identity.InviteToken(args[0]))
}

func (a *App) cmdConnections(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	views, err := a.circle.ListConnections(ctx, me)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		a.printf("no connections")
		return nil
	}
	for _, v := range views {
		hint := v.RemoteDisplayHint
		if hint == "" {
			hint = "(no name shared)"
		}
		a.printf("%s  %s  %s", v.ConnectionID, hint, v.Status)
	}
	return nil
}

func (a *App) cmdRevoke(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: revoke <connId>")
	}
	return a.circle.RevokeConnection(ctx, me, identity.ConnectionID(args[0]))
}

func (a *App) cmdBlock(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: block <connId>")
	}
	return a.circle.BlockConnection(ctx, me, identity.ConnectionID(args[0]))
}

func (a *App) cmdUnblock(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: unblock <circleId>")
	}
	return a.circle.Unblock(ctx, me, identity.CircleID(args[0]))
}

func (a *App) cmdSignal(ctx context.Context, args []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return errors.New("usage: signal <cyan|amber|red> [minutes]")
	}
	ttl := models.DefaultSignalTTL
	if len(args) > 1 {
		mins, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad minutes %q", args[1])
		}
		ttl = time.Duration(mins) * time.Minute
	}
	sig, err := a.circle.SetSignal(ctx, me, models.SignalColor(args[0]), ttl)
	if err != nil {
		return err
	}
	a.printf("signal %s until %s", sig.Color, sig.TTLExpiresAt.Format(time.Kitchen))
	return nil
}

func (a *App) cmdCleanup(ctx context.Context) error {
	n, err := a.invites.Cleanup(ctx)
	if err != nil {
		return err
	}
	a.printf("removed %d finished invites", n)
	return nil
}

func (a *App) cmdClear(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	return a.circle.ClearSignal(ctx, me)
}

func (a *App) cmdSignals(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	payloads, err := a.circle.SignalsForMe(ctx, me)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		a.printf("circle is empty")
		return nil
	}
	for _, p := range payloads {
		name, _ := p["peerDisplayName"].(string)
		if name == "" {
			name = "(connection)"
		}
		a.printf("%s  %s  [%s]", name, p["color"], p["connectionId"])
	}
	return nil
}

func (a *App) cmdSweep(ctx context.Context) error {
	n, err := a.circle.SweepExpiredSignals(ctx)
	if err != nil {
		return err
	}
	a.printf("removed %d expired signals", n)
	return nil
}

func (a *App) cmdSummary(ctx context.Context) error {
	s, err := a.store.Summarize(ctx)
	if err != nil {
		return err
	}
	a.printf("users=%d connections=%d signals=%d invites=%d blocked=%d total=%d",
		s.Users, s.Connections, s.Signals, s.Invites, s.Blocked, s.TotalKeys)
	return nil
}

func (a *App) cmdAudit(ctx context.Context) error {
	rep, err := a.store.FirewallAudit(ctx)
	if err != nil {
		return err
	}
	if rep.Clean() {
		a.printf("clean: %d keys, all namespaced", rep.NamespaceKeys)
		return nil
	}
	sort.Strings(rep.LeakedKeys)
	for _, k := range rep.LeakedKeys {
		a.printf("LEAKED %s", k)
	}
	return nil
}

func (a *App) cmdIntegrity(ctx context.Context) error {
	findings, err := a.store.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		a.printf("no findings")
		return nil
	}
	for _, f := range findings {
		a.printf("%s  %s  %s", f.Kind, f.Key, f.Detail)
	}
	return nil
}

func (a *App) cmdSelftest() error {
	rep := selftest.Run()
	if rep.OK() {
		a.printf("ok: %d/%d checks passed", rep.Passed, rep.Total)
		return nil
	}
	for _, f := range rep.Failures {
		a.printf("FAIL %s: %s", f.Name, f.Message)
	}
	return fmt.Errorf("%d of %d checks failed", rep.Failed, rep.Total)
}

func (a *App) cmdWipe(ctx context.Context) error {
	confirm, err := getSimpleText(a.in, "This erases everything. Type 'yes' to proceed:", a.out)
	if err != nil {
		return err
	}
	if confirm != "yes" {
		a.printf("aborted")
		return nil
	}
	if err := a.store.Wipe(ctx); err != nil {
		return err
	}
	a.personas = make(map[string]identity.CircleID)
	a.current = ""
	a.printf("wiped")
	return nil
}
