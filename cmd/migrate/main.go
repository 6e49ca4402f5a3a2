package main

import (
    "fmt"
    "log"
    "os"
    "path/filepath"

    "github.com/golang-migrate/migrate/v4"
    _ "github.com/golang-migrate/migrate/v4/database/mysql"
    _ "github.com/golang-migrate/migrate/v4/source/file"
    "github.com/joho/godotenv"
)

// migrate applies the SQL migrations in ./migrations.  Usage:
//
//	migrate [up|down]
//
// The database URL comes from DB_URL, or is assembled from the same DB_*
// variables the server uses.
func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("no .env file found")
    }

    dbURL := os.Getenv("DB_URL")
    if dbURL == "" {
        user := os.Getenv("DB_USER")
        pass := os.Getenv("DB_PASS")
        host := os.Getenv("DB_HOST")
        port := os.Getenv("DB_PORT")
        name := os.Getenv("DB_NAME")
        if user == "" || host == "" || port == "" || name == "" {
            log.Fatal("set DB_URL or DB_USER/DB_HOST/DB_PORT/DB_NAME")
        }
        auth := user
        if pass != "" {
            auth = user + ":" + pass
        }
        dbURL = fmt.Sprintf("mysql://%s@tcp(%s:%s)/%s", auth, host, port, name)
    }

    migrationsPath := findMigrations()
    if migrationsPath == "" {
        log.Fatal("migrations directory not found")
    }

    m, err := migrate.New("file://"+migrationsPath, dbURL)
    if err != nil {
        log.Fatal(err)
    }

    cmd := "up"
    if len(os.Args) > 1 {
        cmd = os.Args[1]
    }
    switch cmd {
    case "down":
        if err := m.Down(); err != nil && err != migrate.ErrNoChange {
            log.Fatal(err)
        }
        log.Println("migration down successful")
    default:
        if err := m.Up(); err != nil && err != migrate.ErrNoChange {
            log.Fatal(err)
        }
        log.Println("migration up successful")
    }
}

// findMigrations walks up from the working directory and next to the binary
// looking for a migrations directory, so the tool works from the repo root,
// a subpackage, or a deployed artifact.
func findMigrations() string {
    var candidates []string
    if cwd, err := os.Getwd(); err == nil {
        current := cwd
        for i := 0; i < 6; i++ {
            candidates = append(candidates, filepath.Join(current, "migrations"))
            parent := filepath.Dir(current)
            if parent == current {
                break
            }
            current = parent
        }
    }
    if exePath, err := os.Executable(); err == nil {
        exeDir := filepath.Dir(exePath)
        candidates = append(candidates,
            filepath.Join(exeDir, "migrations"),
            filepath.Join(exeDir, "..", "migrations"),
        )
    }
    for _, candidate := range candidates {
        if info, err := os.Stat(candidate); err == nil && info.IsDir() {
            abs, err := filepath.Abs(candidate)
            if err == nil {
                return abs
            }
        }
    }
    return ""
}
