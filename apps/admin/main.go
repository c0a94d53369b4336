package main

import (
	"log"
	"os"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
	emailsvc "github.com/EMS-UCU/ucu-uems-sub002/services/email"
	logsvc "github.com/EMS-UCU/ucu-uems-sub002/services/logger"
	notifsvc "github.com/EMS-UCU/ucu-uems-sub002/services/notifier"
	"github.com/EMS-UCU/ucu-uems-sub002/storage/database"
	sqlxrepos "github.com/EMS-UCU/ucu-uems-sub002/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	vaultLogger := logsvc.NewRollbarLogger(logger, conf)
	vaultLogger.Enable(!conf.Debug)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, vaultLogger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo)
	notifier := notifsvc.NewEmailNotifier(usrSvc, mailSvc, vaultLogger)
	paperSvc := paper.NewService(
		db, sqlxrepos.NewPaperRepository(db), sqlxrepos.NewAuditRepository(db), notifier, vaultLogger, conf)

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  usrRepo,
		paperSvc: paperSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
