package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nickbruun/zkelection/election"
	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/status"
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/spf13/cobra"
)

func newRunCommand(rt *runtimeState) *cobra.Command {
	var statusAddr, instanceID string
	var presumeSessionLoss bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Take part in an election until the session ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg
			if cmd.Flags().Changed("status-addr") {
				cfg.Status.Addr = statusAddr
			}
			if cmd.Flags().Changed("instance-id") {
				cfg.InstanceID = instanceID
			}
			if cmd.Flags().Changed("presume-session-loss") {
				cfg.PresumeSessionLoss = presumeSessionLoss
			}

			cm, err := zkutils.Connect(cfg.Servers, cfg.SessionTimeout)
			if err != nil {
				return err
			}

			leadership := election.NewLeadership(func(end <-chan struct{}) {
				log.Info("Leadership assumed")
				<-end
				log.Info("Leadership ended")
			})

			coord := election.NewZooKeeperCoordinator(cm, cfg.ACL(), cfg.PresumeSessionLoss)
			c := election.NewController(coord, election.RoleHandlerFunc(func(isLeader bool) {
				if isLeader {
					log.Info("leader")
				} else {
					log.Info("not leader")
				}
				leadership.OnRoleDetermined(isLeader)
			}), cfg.ElectionOptions())

			var srv *status.Server
			if cfg.Status.Addr != "" {
				srv = status.New(cfg.InstanceID, c)
				go func() {
					if err := srv.ListenAndServe(cfg.Status.Addr); err != nil {
						log.Errorf("Status server failed: %v", err)
					}
				}()
			}

			// Closing the connection ends the session, which ends the
			// election.
			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signals)

			go func() {
				select {
				case sig := <-signals:
					log.Infof("Received %s, leaving election", sig)
					cm.Close()
				case <-c.Done():
				}
			}()

			err = c.Run()
			leadership.End()
			cm.Close()

			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if serr := srv.Shutdown(ctx); serr != nil {
					log.Warnf("Failed to shut down status server: %v", serr)
				}
			}

			if err != nil {
				log.Errorf("Election failed: %v", err)
				return err
			}

			log.Infof("Election ended: %v", c.Cause())
			return nil
		},
	}

	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Listen address of the status endpoint")
	cmd.Flags().StringVar(&instanceID, "instance-id", "", "Identity reported by the status endpoint")
	cmd.Flags().BoolVar(&presumeSessionLoss, "presume-session-loss", false, "Leave the election once disconnected for longer than the session can be assumed alive")

	return cmd
}
