package profile

import "profile-chat/internal/domain"

// Sections returns the static biography catalog embedded in the binary. The
// content is reference data only; the selector never mutates it.
func Sections() []domain.ProfileSection {
	return profileSections
}

var profileSections = []domain.ProfileSection{
	{
		ID:    "profile",
		Title: "Profile basics",
		Content: "Miguel Garcia is a Software Engineer based in Madrid, Spain. " +
			"LinkedIn: linkedin.com/in/miguel-garciag. X (Twitter): x.com/miguel_garglez.",
		Tags: []string{"contact", "facts"},
		Type: domain.SectionFact,
	},
	{
		ID:    "about",
		Title: "About Miguel",
		Content: "I'm a product-minded software developer focused on delivering real business value " +
			"through scalable, user-centered digital products. I make practical use of AI tools to " +
			"optimize workflows, improve software quality, and boost team productivity, and I actively " +
			"share best practices to help teams adopt them. I aim to keep a global view of the product, " +
			"balancing engineering best practices, maintainability, and cross-team collaboration. " +
			"I'm motivated to keep growing as a technical professional while contributing to projects " +
			"where quality, innovation, and impact are the core.",
		Tags: []string{"trayectoria", "motivacion", "valores"},
		Type: domain.SectionStory,
	},
	{
		ID:    "qualities",
		Title: "Personal qualities",
		Content: "Team player with a long history in federated football teams since age seven. " +
			"Resilient and motivated by failure to keep improving. Fast learner with attention to " +
			"detail and a proactive approach. Global mindset with English C1 level certified by the " +
			"British Council (Aptis) and experience speaking in public.",
		Tags: []string{"fortalezas", "equipo", "forma-de-trabajar"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "recruiter-value-proposition",
		Title: "Recruiter snapshot - Why Miguel",
		Content: "Miguel combines product mindset and frontend platform execution. In enterprise " +
			"environments, he focuses on consistent, accessible, and high-performance UI systems while " +
			"keeping adoption and business impact in view. He is especially valuable in teams that need " +
			"both delivery speed and strong engineering quality standards.",
		Tags: []string{"recruiting", "impacto", "fortalezas", "forma-de-trabajar"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "work-style",
		Title: "Work style and collaboration",
		Content: "He works with a pragmatic, quality-first approach: clarify product goals, break work " +
			"into maintainable increments, communicate tradeoffs early, and ship with documentation and " +
			"release discipline. He is comfortable collaborating with engineers, QA, designers, and " +
			"product stakeholders in agile setups.",
		Tags: []string{"forma-de-trabajar", "equipo", "valores", "stakeholders", "ownership"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "leadership-and-ownership",
		Title: "Leadership and ownership examples",
		Content: "At Open Digital Services, he leads implementation, maintenance, and refactoring of " +
			"shared UI components used by web developers across Grupo Santander banks. At Jember, he " +
			"co-led the recovery of a stalled test automation initiative and helped turn it into a " +
			"practical regression asset with around 50% reduction in person-day cost.",
		Tags: []string{"liderazgo", "impacto", "proyectos", "ownership", "recruiting"},
		Type: domain.SectionExample,
	},
	{
		ID:    "communication",
		Title: "Communication and stakeholder management",
		Content: "He is used to explaining technical decisions to different audiences. Examples include " +
			"remote client demos at Electric-Save, cross-team coordination in QA and frontend contexts, " +
			"and public speaking experience supported by an English C1 certification.",
		Tags: []string{"comunicacion", "equipo", "clientes", "stakeholders", "recruiting"},
		Type: domain.SectionExample,
	},
	{
		ID:    "problem-solving-example",
		Title: "Problem-solving example",
		Content: "At Jember, the test automation project had been inactive for more than two years. He " +
			"partnered with another QA engineer to refactor and relaunch it, improving regression " +
			"efficiency and reducing manual regression cost by about 50% in person days.",
		Tags: []string{"impacto", "proyectos", "calidad", "aprendizaje", "recruiting"},
		Type: domain.SectionExample,
	},
	{
		ID:    "experience-ods",
		Title: "Experience - Open Digital Services (Santander Group)",
		Content: "Frontend UI Platform Engineer (Sep 2024 - Current). Member of the Kubit Web UI " +
			"components platform team, building and maintaining the component library used by web " +
			"developers across Grupo Santander banks. Leads implementation, maintenance, and refactoring " +
			"of UI components, ensuring consistency, performance, and accessibility across the product " +
			"ecosystem. Manages releases with semantic versioning, branch strategy, and Storybook " +
			"documentation. Drives AI-enabled workflows with tools like GitHub Copilot, MCP servers, and " +
			"context engineering to improve productivity, code quality, and collaborative development.",
		Tags: []string{"experiencia", "impacto", "proyectos", "frontend"},
		Type: domain.SectionExample,
	},
	{
		ID:    "experience-jember",
		Title: "Experience - Jember Engineering Solutions",
		Content: "QA Software Engineer (Sep 2023 - Jul 2024). Coordinated with app frontend teams using " +
			"agile methodologies. Reported hundreds of bugs, improving performance and UX. Co-led a " +
			"refactor and relaunch of a test automation project, improving regression testing cost by " +
			"about 50% in person days.",
		Tags: []string{"experiencia", "impacto", "calidad", "proyectos"},
		Type: domain.SectionExample,
	},
	{
		ID:    "experience-electric-save",
		Title: "Experience - Electric-Save",
		Content: "Software Developer (Jan 2022 - May 2022). Worked directly with clients in a B2B " +
			"startup, fixing issues and supporting customers. Built a web application proof of concept " +
			"for a key client that advanced the proposal to the next selection stage. Led remote " +
			"meetings to demo the product and drive growth.",
		Tags: []string{"experiencia", "impacto", "proyectos", "clientes"},
		Type: domain.SectionExample,
	},
	{
		ID:    "education",
		Title: "Education",
		Content: "Masters Degree in Computer Science at Universidad Autonoma de Madrid (Sep 2022 - Feb " +
			"2024). Exchange program at Aalto University in Helsinki, Finland (Jan 2023 - Jun 2023). " +
			"Bachelors Degree in Computer Science at Universidad Autonoma de Madrid (Sep 2018 - Jun 2022).",
		Tags: []string{"educacion", "trayectoria"},
		Type: domain.SectionFact,
	},
	{
		ID:    "skills-frontend",
		Title: "Skills - Frontend Development",
		Content: "React and TypeScript with component libraries at scale. Design systems with tokens, " +
			"components, and UI governance. Accessibility with WCAG compliance and inclusive patterns. " +
			"Performance-focused UI quality, profiling, and optimization.",
		Tags: []string{"skills", "frontend", "impacto"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "skills-backend",
		Title: "Skills - Backend and Data",
		Content: "Python with Flask, Django, Pandas, NumPy, Matplotlib. Databases including SQL " +
			"(PostgreSQL, SQLite) and NoSQL (MongoDB). Node.js with MERN stack experience.",
		Tags: []string{"skills", "backend", "datos"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "skills-devops",
		Title: "Skills - Engineering Tools and AI",
		Content: "AI-assisted development with GitHub Copilot, MCP servers, and context engineering. " +
			"CI/CD with GitHub Actions and Microsoft Azure pipelines. Cloud and APIs with AWS, Vercel, " +
			"Cloudflare Workers, Docker, and GraphQL.",
		Tags: []string{"skills", "devops", "infra"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "growth-areas",
		Title: "Growth areas and continuous improvement",
		Content: "He actively improves in two directions: deeper backend and system design breadth, and " +
			"stronger leverage of AI workflows in day-to-day engineering. His approach is iterative: " +
			"test in real tasks, document what works, share practices, and standardize successful " +
			"patterns with the team.",
		Tags: []string{"debilidades", "aprendizaje", "futuro", "forma-de-trabajar", "recruiting"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "role-fit",
		Title: "Best fit roles and environments",
		Content: "Best fit roles include frontend platform engineering, design systems, and " +
			"product-facing frontend positions where accessibility, performance, and maintainability " +
			"matter. He thrives in environments with ownership, cross-functional collaboration, and " +
			"measurable product impact.",
		Tags: []string{"recruiting", "futuro", "impacto", "forma-de-trabajar", "ownership"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "availability",
		Title: "Availability and work setup",
		Content: "Based in Madrid (CET/CEST) and open to discussing new opportunities, impactful " +
			"projects, and collaborative engineering roles. For role details, interview process, and " +
			"availability timing, reach out via LinkedIn or X.",
		Tags: []string{"contact", "disponibilidad", "recruiting"},
		Type: domain.SectionFact,
	},
	{
		ID:    "philosophy",
		Title: "Development philosophy",
		Content: "Strong knowledge fundamentals are the key. Technologies and frameworks come and go; " +
			"they are tools that help engineers fix business problems.",
		Tags: []string{"valores", "filosofia", "impacto"},
		Type: domain.SectionAnswer,
	},
	{
		ID:    "contact",
		Title: "Contact and interests",
		Content: "Open to discussing new opportunities, exciting projects, or conversations about " +
			"technology and software engineering. Outside of coding, he is a sports enthusiast who has " +
			"played football since age seven, enjoys staying physically active, reads software " +
			"engineering blogs, explores new technologies, and seeks activities that foster personal " +
			"growth.",
		Tags: []string{"contact", "intereses", "cultura"},
		Type: domain.SectionAnswer,
	},
}
