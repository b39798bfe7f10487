package store

// migration holds a single schema migration with its target version and SQL.
// The SQL is a template; {{pk}}, {{bool}}, {{false}} and {{ts}} are filled
// in per dialect.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id               {{pk}},
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	tech_stack       TEXT NOT NULL DEFAULT '',
	timeline         TEXT NOT NULL DEFAULT '',
	additional_notes TEXT NOT NULL DEFAULT '',
	target_deadline  {{ts}} NOT NULL,
	created_at       {{ts}} NOT NULL,
	updated_at       {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS ideas (
	id          {{pk}},
	project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	is_final    {{bool}} NOT NULL DEFAULT {{false}},
	created_at  {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS step_sections (
	id           {{pk}},
	idea_id      BIGINT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	"order"      INTEGER NOT NULL,
	is_completed {{bool}} NOT NULL DEFAULT {{false}},
	created_at   {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS step_todos (
	id           {{pk}},
	section_id   BIGINT NOT NULL REFERENCES step_sections(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	is_completed {{bool}} NOT NULL DEFAULT {{false}},
	"order"      INTEGER NOT NULL,
	created_at   {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS step_section_chats (
	id         {{pk}},
	section_id BIGINT NOT NULL REFERENCES step_sections(id) ON DELETE CASCADE,
	role       TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS step_planning_chats (
	id         {{pk}},
	idea_id    BIGINT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
	role       TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	created_at {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);
CREATE INDEX IF NOT EXISTS idx_ideas_project ON ideas(project_id);
CREATE INDEX IF NOT EXISTS idx_step_sections_idea ON step_sections(idea_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_step_todos_section_order ON step_todos(section_id, "order");
CREATE INDEX IF NOT EXISTS idx_section_chats_section ON step_section_chats(section_id, created_at);
CREATE INDEX IF NOT EXISTS idx_planning_chats_idea ON step_planning_chats(idea_id, created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		// Rows written by older clients carry the author as a text prefix
		// ("AI: " / "User: ") and no role. Move it into the role column.
		version: 2,
		sql: `
UPDATE step_section_chats SET role = 'assistant', message = SUBSTR(message, 5)
	WHERE role = '' AND SUBSTR(message, 1, 4) = 'AI: ';
UPDATE step_section_chats SET role = 'user', message = SUBSTR(message, 7)
	WHERE role = '' AND SUBSTR(message, 1, 6) = 'User: ';
UPDATE step_section_chats SET role = 'user' WHERE role = '';

UPDATE step_planning_chats SET role = 'assistant', message = SUBSTR(message, 5)
	WHERE role = '' AND SUBSTR(message, 1, 4) = 'AI: ';
UPDATE step_planning_chats SET role = 'user', message = SUBSTR(message, 7)
	WHERE role = '' AND SUBSTR(message, 1, 6) = 'User: ';
UPDATE step_planning_chats SET role = 'user' WHERE role = '';

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
